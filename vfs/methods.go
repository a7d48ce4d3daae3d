package vfs

import "github.com/INLOpen/nexusvfs/core"

// Highest method-table tier defined by the contract.
const MaxIOVersion = 3

// IOMethods is the versioned per-file dispatch table. Slot order is fixed.
// Version gates which trailing slots a host may call: tier 1 is Close through
// DeviceCharacteristics, tier 2 adds the shared-memory slots and tier 3 adds
// Fetch and Unfetch.
type IOMethods struct {
	Version int

	// v1
	Close                 func(f *File) core.ResultCode
	Read                  func(f *File, p []byte, off int64) core.ResultCode
	Write                 func(f *File, p []byte, off int64) core.ResultCode
	Truncate              func(f *File, size int64) core.ResultCode
	Sync                  func(f *File, flags core.SyncFlag) core.ResultCode
	FileSize              func(f *File) (int64, core.ResultCode)
	Lock                  func(f *File, level core.LockLevel) core.ResultCode
	Unlock                func(f *File, level core.LockLevel) core.ResultCode
	CheckReservedLock     func(f *File) (bool, core.ResultCode)
	FileControl           func(f *File, op core.FcntlOp, arg any) core.ResultCode
	SectorSize            func(f *File) int
	DeviceCharacteristics func(f *File) core.DeviceCharacteristic

	// v2
	ShmMap     func(f *File, region, size int, extend bool) ([]byte, core.ResultCode)
	ShmLock    func(f *File, offset, n int, flags core.ShmLockFlag) core.ResultCode
	ShmBarrier func(f *File)
	ShmUnmap   func(f *File, deleteFlag bool) core.ResultCode

	// v3
	Fetch   func(f *File, off int64, amt int) ([]byte, core.ResultCode)
	Unfetch func(f *File, off int64, p []byte) core.ResultCode
}

// Supports reports whether slots of tier v may be invoked on m.
func (m *IOMethods) Supports(v int) bool {
	return m != nil && v >= 1 && m.Version >= v
}

// Complete reports whether every slot of every tier up to Version is populated.
func (m *IOMethods) Complete() bool {
	if m == nil || m.Version < 1 {
		return false
	}
	v1 := m.Close != nil && m.Read != nil && m.Write != nil && m.Truncate != nil &&
		m.Sync != nil && m.FileSize != nil && m.Lock != nil && m.Unlock != nil &&
		m.CheckReservedLock != nil && m.FileControl != nil && m.SectorSize != nil &&
		m.DeviceCharacteristics != nil
	if !v1 {
		return false
	}
	if m.Version >= 2 && (m.ShmMap == nil || m.ShmLock == nil || m.ShmBarrier == nil || m.ShmUnmap == nil) {
		return false
	}
	if m.Version >= 3 && (m.Fetch == nil || m.Unfetch == nil) {
		return false
	}
	return true
}
