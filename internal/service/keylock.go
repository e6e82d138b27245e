package service

import "sync"

// keyLock 提供按习惯 ID 粒度的互斥锁
// 增量更新与夜间重算可能同时写同一习惯的派生状态，必须串行；
// 不同习惯之间互不相关，不做全局锁以保留批量重算的并行度
type keyLock struct {
	mu    sync.Mutex
	locks map[uint]*sync.Mutex
}

func newKeyLock() *keyLock {
	return &keyLock{locks: make(map[uint]*sync.Mutex)}
}

// lock 锁定指定 key，返回对应的解锁函数
// 锁对象按需创建且不回收，数量以习惯总数为上界
func (k *keyLock) lock(key uint) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
