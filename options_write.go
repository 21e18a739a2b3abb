package imagemeta

// SaveOption configures behavior when saving image files.
//
// Example:
//
//	err := file.Save(
//	    imagemeta.WithBackup(".bak"),
//	    imagemeta.WithValidation(),
//	)
type SaveOption func(*saveOptions)

// saveOptions holds configuration for saving files.
type saveOptions struct {
	backupSuffix    string // Suffix for backup file (e.g., ".bak")
	validate        bool   // Re-open after write and compare snapshots
	preserveModTime bool   // Keep original modification time
	requireValid    bool   // Refuse to write XMP that fails its schemas

	// Version recorded after a successful write
	store    *VersionStore
	parentID string
	commit   CommitInfo
}

// defaultSaveOptions returns the default configuration for saving.
func defaultSaveOptions() *saveOptions {
	return &saveOptions{}
}

// WithBackup renames the existing output file to its name plus suffix
// before the new one takes its place. An existing backup is overwritten.
//
//	err := file.Save(imagemeta.WithBackup(".bak"))
//	// Original kept as photo.jpg.bak
func WithBackup(suffix string) SaveOption {
	return func(o *saveOptions) {
		o.backupSuffix = suffix
	}
}

// WithValidation re-opens the written file and checks that every segment
// parses and that its metadata snapshot equals the one that was saved.
func WithValidation() SaveOption {
	return func(o *saveOptions) {
		o.validate = true
	}
}

// WithPreserveModTime keeps the original file modification time.
func WithPreserveModTime() SaveOption {
	return func(o *saveOptions) {
		o.preserveModTime = true
	}
}

// WithSchemaValidation refuses to save when the XMP document fails its
// registered schemas. Nothing is written in that case.
func WithSchemaValidation() SaveOption {
	return func(o *saveOptions) {
		o.requireValid = true
	}
}

// WithCommit records the saved metadata as a new version in store, child
// of parentID ("" starts a new history). The version is available from
// File.Committed once Save returns.
//
//	err := file.Save(imagemeta.WithCommit(store, head.ID, imagemeta.CommitInfo{Author: "ana"}))
//	head = file.Committed
func WithCommit(store *VersionStore, parentID string, info CommitInfo) SaveOption {
	return func(o *saveOptions) {
		o.store = store
		o.parentID = parentID
		o.commit = info
	}
}
