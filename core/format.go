package core

// This file centralizes constants related to on-disk formats and the
// per-file storage layout.

// --- Magic Numbers ---
const (
	// BlobMagicNumber identifies a blob persisted by the durable syncer.
	BlobMagicNumber uint32 = 0x42534656 // "VFSB"
)

// --- Layout ---
const (
	// SizeRecordKey is the key of the logical-size record inside a file's directory.
	SizeRecordKey = "file_size"
	// BlobFileSuffix is appended to every key persisted by the durable syncer.
	BlobFileSuffix = ".blob"
	// HeaderRegionSize is the extent at the start of a database file that may be
	// read at arbitrary offsets; reads past it are page-aligned.
	HeaderRegionSize = 512
)

// --- Protocol & Format Versions ---
const (
	// FormatVersion is the current version for all persistent file formats.
	FormatVersion uint8 = 1
)
