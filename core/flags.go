package core

// OpenFlag carries the engine's open-time flags, including the file kind.
type OpenFlag int

const (
	OpenReadOnly      OpenFlag = 0x00000001
	OpenReadWrite     OpenFlag = 0x00000002
	OpenCreate        OpenFlag = 0x00000004
	OpenDeleteOnClose OpenFlag = 0x00000008
	OpenExclusive     OpenFlag = 0x00000010
	OpenURI           OpenFlag = 0x00000040
	OpenMemory        OpenFlag = 0x00000080
	OpenMainDB        OpenFlag = 0x00000100
	OpenTempDB        OpenFlag = 0x00000200
	OpenTransientDB   OpenFlag = 0x00000400
	OpenMainJournal   OpenFlag = 0x00000800
	OpenTempJournal   OpenFlag = 0x00001000
	OpenSubJournal    OpenFlag = 0x00002000
	OpenSuperJournal  OpenFlag = 0x00004000
	OpenWAL           OpenFlag = 0x00080000
)

// Has reports whether all bits of mask are set.
func (f OpenFlag) Has(mask OpenFlag) bool {
	return f&mask == mask
}

// IsDatabase reports whether the flags open a main or temporary database.
func (f OpenFlag) IsDatabase() bool {
	return f&(OpenMainDB|OpenTempDB) != 0
}

// AccessFlag selects the question asked by the filesystem Access slot.
type AccessFlag int

const (
	AccessExists    AccessFlag = 0
	AccessReadWrite AccessFlag = 1
	AccessRead      AccessFlag = 2
)

// LockLevel is the engine's file lock ladder.
type LockLevel int

const (
	LockNone      LockLevel = 0
	LockShared    LockLevel = 1
	LockReserved  LockLevel = 2
	LockPending   LockLevel = 3
	LockExclusive LockLevel = 4
)

// SyncFlag is passed to the file Sync slot.
type SyncFlag int

const (
	SyncNormal   SyncFlag = 0x00002
	SyncFull     SyncFlag = 0x00003
	SyncDataOnly SyncFlag = 0x00010
)

// FcntlOp is a file-control operation code.
type FcntlOp int

const (
	FcntlLockState          FcntlOp = 1
	FcntlSizeHint           FcntlOp = 5
	FcntlChunkSize          FcntlOp = 6
	FcntlFilePointer        FcntlOp = 7
	FcntlSyncOmitted        FcntlOp = 8
	FcntlPersistWAL         FcntlOp = 10
	FcntlPowersafeOverwrite FcntlOp = 13
	FcntlVFSName            FcntlOp = 12
	FcntlPragma             FcntlOp = 14
	FcntlHasMoved           FcntlOp = 20
	FcntlSync               FcntlOp = 21
	FcntlCommitPhaseTwo     FcntlOp = 22
)

// DeviceCharacteristic describes guarantees a file's storage device makes.
type DeviceCharacteristic int

const (
	IOCapAtomic              DeviceCharacteristic = 0x00000001
	IOCapSafeAppend          DeviceCharacteristic = 0x00000200
	IOCapSequential          DeviceCharacteristic = 0x00000400
	IOCapUndeletableWhenOpen DeviceCharacteristic = 0x00000800
	IOCapPowersafeOverwrite  DeviceCharacteristic = 0x00001000
	IOCapImmutable           DeviceCharacteristic = 0x00002000
	IOCapBatchAtomic         DeviceCharacteristic = 0x00004000
)

// ShmLockFlag is passed to the shared-memory lock slot.
type ShmLockFlag int

const (
	ShmUnlock    ShmLockFlag = 1
	ShmLock      ShmLockFlag = 2
	ShmShared    ShmLockFlag = 4
	ShmExclusive ShmLockFlag = 8
)
