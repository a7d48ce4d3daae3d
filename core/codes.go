package core

import "fmt"

// ResultCode is the status code returned by every slot of the native file and
// filesystem tables. The numeric values match the engine's ABI, including the
// extended I/O codes (primary code in the low byte, detail in the next byte).
type ResultCode int

const (
	OK         ResultCode = 0
	ErrorCode  ResultCode = 1
	Internal   ResultCode = 2
	Perm       ResultCode = 3
	Busy       ResultCode = 5
	NoMem      ResultCode = 7
	ReadOnly   ResultCode = 8
	IOErr      ResultCode = 10
	Corrupt    ResultCode = 11
	NotFound   ResultCode = 12
	Full       ResultCode = 13
	CantOpen   ResultCode = 14
	Misuse     ResultCode = 21
	NoLFS      ResultCode = 22
	FormatCode ResultCode = 24
	Range      ResultCode = 25
)

// Extended I/O error codes.
const (
	IOErrRead              = IOErr | 1<<8
	IOErrShortRead         = IOErr | 2<<8
	IOErrWrite             = IOErr | 3<<8
	IOErrFsync             = IOErr | 4<<8
	IOErrDirFsync          = IOErr | 5<<8
	IOErrTruncate          = IOErr | 6<<8
	IOErrFstat             = IOErr | 7<<8
	IOErrUnlock            = IOErr | 8<<8
	IOErrRdLock            = IOErr | 9<<8
	IOErrDelete            = IOErr | 10<<8
	IOErrAccess            = IOErr | 13<<8
	IOErrCheckReservedLock = IOErr | 14<<8
	IOErrLock              = IOErr | 15<<8
	IOErrClose             = IOErr | 16<<8
	IOErrDeleteNoEnt       = IOErr | 23<<8

	CantOpenFullPath = CantOpen | 3<<8
)

// Primary strips the extended detail and returns the primary code.
func (c ResultCode) Primary() ResultCode {
	return c & 0xff
}

// IsOK reports whether c is OK.
func (c ResultCode) IsOK() bool {
	return c == OK
}

func (c ResultCode) String() string {
	switch c {
	case OK:
		return "OK"
	case ErrorCode:
		return "ERROR"
	case Internal:
		return "INTERNAL"
	case Perm:
		return "PERM"
	case Busy:
		return "BUSY"
	case NoMem:
		return "NOMEM"
	case ReadOnly:
		return "READONLY"
	case IOErr:
		return "IOERR"
	case IOErrRead:
		return "IOERR_READ"
	case IOErrShortRead:
		return "IOERR_SHORT_READ"
	case IOErrWrite:
		return "IOERR_WRITE"
	case IOErrFsync:
		return "IOERR_FSYNC"
	case IOErrDirFsync:
		return "IOERR_DIR_FSYNC"
	case IOErrTruncate:
		return "IOERR_TRUNCATE"
	case IOErrFstat:
		return "IOERR_FSTAT"
	case IOErrUnlock:
		return "IOERR_UNLOCK"
	case IOErrRdLock:
		return "IOERR_RDLOCK"
	case IOErrDelete:
		return "IOERR_DELETE"
	case IOErrAccess:
		return "IOERR_ACCESS"
	case IOErrCheckReservedLock:
		return "IOERR_CHECKRESERVEDLOCK"
	case IOErrLock:
		return "IOERR_LOCK"
	case IOErrClose:
		return "IOERR_CLOSE"
	case IOErrDeleteNoEnt:
		return "IOERR_DELETE_NOENT"
	case Corrupt:
		return "CORRUPT"
	case NotFound:
		return "NOTFOUND"
	case Full:
		return "FULL"
	case CantOpen:
		return "CANTOPEN"
	case CantOpenFullPath:
		return "CANTOPEN_FULLPATH"
	case Misuse:
		return "MISUSE"
	case NoLFS:
		return "NOLFS"
	case FormatCode:
		return "FORMAT"
	case Range:
		return "RANGE"
	}
	return fmt.Sprintf("CODE(%d)", int(c))
}

// Err converts a result code into a Go error. OK maps to nil.
func (c ResultCode) Err() error {
	if c == OK {
		return nil
	}
	return &Error{Code: c}
}
