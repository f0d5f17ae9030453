package common

import (
	"github.com/gravitational/trace"
	jsoniter "github.com/json-iterator/go"
	"github.com/peterbourgon/diskv/v3"
)

// Database keeps small JSON documents as flat files inside a directory.
// Each document is addressed by its file name
type Database struct {
	dv *diskv.Diskv
}

func NewDatabase(dir string) *Database {
	// Simplest transform function: put all the files into the base dir
	flatTransform := func(s string) []string { return []string{} }

	dv := diskv.New(diskv.Options{
		BasePath:  dir,
		Transform: flatTransform,
		TempDir:   dir,
		PathPerm:  0o755,
		FilePerm:  0o600,
	})
	return &Database{dv}
}

// Load decodes the document stored under key into v.
// If the document does not exist v is left untouched and false is returned
func (db *Database) Load(key string, v interface{}) (bool, error) {
	if !db.dv.Has(key) {
		return false, nil
	}
	data, err := db.dv.Read(key)
	if err != nil {
		return false, trace.Wrap(err)
	}
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(data, v); err != nil {
		return false, trace.BadParameter("document %s is not valid: %v", key, err)
	}
	return true, nil
}

// Save replaces the document stored under key with v
func (db *Database) Save(key string, v interface{}) error {
	data, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(v, "", "  ")
	if err != nil {
		return trace.Wrap(err)
	}
	return trace.Wrap(db.dv.Write(key, data))
}
