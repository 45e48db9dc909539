package kvdb

type DB interface {
	Set(bucket string, key string, value string) error
	Get(bucket string, key string) (string, error)
	Delete(bucket string, key string) error
	GetAll(bucket string) (map[string]string, error)
	Close() error
}

var _ DB = (*BoltDB)(nil)
