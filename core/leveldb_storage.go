package core

import (
	"errors"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
)

// LeveldbStorage 是 Storage 的 goleveldb 实现，链上数据只通过批处理写入
type LeveldbStorage struct {
	db   *leveldb.DB
	sync bool
}

// NewLeveldbStorage 打开或创建 path 下的数据库，每个区块的批处理都同步落盘
func NewLeveldbStorage(path string) (*LeveldbStorage, error) {
	db, err := leveldb.OpenFile(path, &opt.Options{
		// 区块和状态都是哈希键，压缩收益很小
		Compression: opt.NoCompression,
	})
	if err != nil {
		return nil, fmt.Errorf("open leveldb at %s: %w", path, err)
	}
	return &LeveldbStorage{db: db, sync: true}, nil
}

// NewMemoryStorage 打开一个纯内存的 leveldb，进程退出后数据即丢失
func NewMemoryStorage() *LeveldbStorage {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		panic(err)
	}
	return &LeveldbStorage{db: db}
}

func (s *LeveldbStorage) Get(key []byte) ([]byte, error) {
	v, err := s.db.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, fmt.Errorf("key %x: %w", key, ErrNotFound)
	}
	return v, err
}

func (s *LeveldbStorage) NewBatch() Batch {
	return &leveldbBatch{batch: new(leveldb.Batch)}
}

func (s *LeveldbStorage) Write(b Batch) error {
	lb, ok := b.(*leveldbBatch)
	if !ok {
		return fmt.Errorf("unsupported batch type %T", b)
	}
	if lb.batch.Len() == 0 {
		return nil
	}
	return s.db.Write(lb.batch, &opt.WriteOptions{Sync: s.sync})
}

func (s *LeveldbStorage) Close() error {
	return s.db.Close()
}

type leveldbBatch struct {
	batch *leveldb.Batch
}

func (b *leveldbBatch) Put(key, value []byte) { b.batch.Put(key, value) }
func (b *leveldbBatch) Delete(key []byte)     { b.batch.Delete(key) }
func (b *leveldbBatch) Len() int              { return b.batch.Len() }
