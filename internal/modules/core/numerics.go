package core

// Numeric reply codes used by the built-in command set, spec §6: "each
// module registers the specific 3-digit codes it emits."
const (
	RplAway         = 301
	RplUserhost     = 302
	RplWhoisUser    = 311
	RplWhoisServer  = 312
	RplWhoisOperator = 313
	RplEndOfWho     = 315
	RplWhoisIdle    = 317
	RplEndOfWhois   = 318
	RplWhoisChannels = 319
	RplListStart    = 321
	RplList         = 322
	RplListEnd      = 323
	RplChannelModeIs = 324
	RplNoTopic      = 331
	RplTopic        = 332
	RplInviting     = 341
	RplWhoReply     = 352
	RplNameReply    = 353
	RplEndOfNames   = 366
	RplBanList      = 367
	RplEndOfBanList = 368
	RplWhowasUser   = 314
	RplEndOfWhowas  = 369
	RplMotd         = 372
	RplMotdStart    = 375
	RplEndOfMotd    = 376
	RplYoureOper    = 381

	ErrNoSuchNick      = 401
	ErrNoSuchChannel   = 403
	ErrCannotSendToChan = 404
	ErrTooManyChannels = 405
	ErrWasNoSuchNick   = 406
	ErrNoOrigin        = 409
	ErrNoRecipient     = 411
	ErrNoTextToSend    = 412
	ErrUnknownCommand  = 421
	ErrNoMotd          = 422
	ErrNoNicknameGiven = 431
	ErrErroneousNickname = 432
	ErrNicknameInUse   = 433
	ErrNotOnChannel    = 442
	ErrUserOnChannel   = 443
	ErrNeedMoreParams  = 461
	ErrAlreadyRegistered = 462
	ErrPasswdMismatch  = 464
	ErrKeySet          = 467
	ErrChannelIsFull   = 471
	ErrUnknownMode     = 472
	ErrInviteOnlyChan  = 473
	ErrBannedFromChan  = 474
	ErrBadChannelKey   = 475
	ErrNoPrivileges    = 481
	ErrChanOPrivsNeeded = 482
	ErrNoOperHost      = 491
	ErrUsersDontMatch  = 502
)
