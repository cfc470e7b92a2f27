package db

import "errors"

// ErrKeyNotFound is returned by reads of missing keys and members.
var ErrKeyNotFound = errors.New("db: key not found")

// Op names the failing command in an Error.
const (
	OpPing             = "PING"
	OpDel              = "DEL"
	OpGet              = "GET"
	OpSet              = "SET"
	OpIncrBy           = "INCRBY"
	OpExpire           = "PEXPIRE"
	OpZAdd             = "ZADD"
	OpZRem             = "ZREM"
	OpZRange           = "ZRANGE"
	OpZScore           = "ZSCORE"
	OpZCount           = "ZCOUNT"
	OpZRemRangeByScore = "ZREMRANGEBYSCORE"
)

// Error carries the command that failed.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
