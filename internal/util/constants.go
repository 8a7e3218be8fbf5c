package util

const (
	TimeFormat = "2006-01-02T15:04:05Z07:00"
)

const (
	StorageLocal = "local"
	StorageMinio = "minio"
	StorageOSS   = "oss"
)

const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite"
)

// Session join codes.
const (
	SessionCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	SessionCodeLength   = 8
)

const (
	RequesterStudent = "student"
	RequesterTeacher = "teacher"
)

const (
	MimeJSON = "application/json"
)
