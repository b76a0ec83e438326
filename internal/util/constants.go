package util

const (
	DateFormat = "2006-01-02"
	TimeFormat = "2006-01-02 15:04:05"
)

const (
	StorageNone  = "none"
	StorageLocal = "local"
	StorageMinio = "minio"
)

// gin context keys
const (
	ContextUserKey   = "user"
	ContextConfigKey = "config"
)

// MimeJSON is the content type of archived attempts.
const MimeJSON = "application/json"
