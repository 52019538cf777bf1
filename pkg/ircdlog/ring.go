package ircdlog

import (
	"container/ring"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Ring is a bounded in-memory log sink that keeps the most recent lines
// without needing to reopen or tail a file. The daemon itself does not
// install one.
type Ring struct {
	size int

	mu sync.Mutex
	r  *ring.Ring
}

func NewRing(size int) *Ring {
	return &Ring{r: ring.New(size), size: size}
}

func (l *Ring) Println(v ...interface{}) {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	var buf []byte
	year, month, day := now.Date()
	buf = strconv.AppendInt(buf, int64(year), 10)
	buf = append(buf, '/')
	buf = strconv.AppendInt(buf, int64(month), 10)
	buf = append(buf, '/')
	buf = strconv.AppendInt(buf, int64(day), 10)
	buf = append(buf, ' ')

	hour, min, sec := now.Clock()
	buf = strconv.AppendInt(buf, int64(hour), 10)
	buf = append(buf, ':')
	buf = strconv.AppendInt(buf, int64(min), 10)
	buf = append(buf, ':')
	buf = strconv.AppendInt(buf, int64(sec), 10)
	buf = append(buf, ' ')

	for i, a := range v {
		if i > 0 {
			buf = append(buf, ' ')
		}
		if s, ok := a.(string); ok {
			buf = append(buf, s...)
		} else {
			buf = append(buf, []byte(toString(a))...)
		}
	}

	l.r = l.r.Next()
	l.r.Value = string(buf)
}

// Write implements io.Writer so a Ring can be registered with AddLogger;
// each write is stored as one line, without its trailing newline.
func (l *Ring) Write(p []byte) (int, error) {
	l.Println(strings.TrimSuffix(string(p), "\n"))
	return len(p), nil
}

func toString(v interface{}) string {
	type stringer interface{ String() string }
	if s, ok := v.(stringer); ok {
		return s.String()
	}
	return ""
}

// Dump returns the buffered messages from oldest to newest.
func (l *Ring) Dump() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []string
	l.r.Next().Do(func(v interface{}) {
		if v != nil {
			out = append(out, v.(string))
		}
	})
	return out
}
