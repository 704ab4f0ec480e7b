package errcode

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// 错误种类哨兵，调用方统一使用 errors.Is 判定
var (
	ErrValidation            = errors.New("validation failed")
	ErrConfiguration         = errors.New("invalid configuration")
	ErrInsufficientResources = errors.New("insufficient resources")
	ErrInsufficientMaidens   = errors.New("insufficient maidens")
	ErrInsufficientShards    = errors.New("insufficient shards")
	ErrLockTimeout           = errors.New("lock wait timeout")
	ErrConcurrency           = errors.New("concurrent modification conflict")
	ErrPlayerNotFound        = errors.New("player not found")
	ErrMaidenNotFound        = errors.New("maiden not found")
	ErrRateLimited           = errors.New("too many requests")
)

// ValidationError 输入参数不合法
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Validation 构造带调用栈的 ValidationError
func Validation(field, format string, args ...any) error {
	return errors.WithStack(&ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)})
}

// InsufficientError 业务资源不足，携带需要量与当前量
type InsufficientError struct {
	Kind      error
	Resource  string
	Required  int64
	Available int64
}

func (e *InsufficientError) Error() string {
	return fmt.Sprintf("insufficient %s: required %d, available %d", e.Resource, e.Required, e.Available)
}

func (e *InsufficientError) Is(target error) bool {
	return target == e.Kind
}

// InsufficientResources 货币不足（grace / rikis）
func InsufficientResources(resource string, required, available int64) error {
	return errors.WithStack(&InsufficientError{
		Kind:      ErrInsufficientResources,
		Resource:  resource,
		Required:  required,
		Available: available,
	})
}

// InsufficientMaidens 持有数量不足
func InsufficientMaidens(required, available int64) error {
	return errors.WithStack(&InsufficientError{
		Kind:      ErrInsufficientMaidens,
		Resource:  "maidens",
		Required:  required,
		Available: available,
	})
}

// InsufficientShards 碎片余额不足
func InsufficientShards(required, available int64) error {
	return errors.WithStack(&InsufficientError{
		Kind:      ErrInsufficientShards,
		Resource:  "shards",
		Required:  required,
		Available: available,
	})
}

// ConfigurationError 配置缺失或不合法，启动阶段致命，热更新时拒绝生效
type ConfigurationError struct {
	Key    string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration %s: %s", e.Key, e.Reason)
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// Configuration 构造带调用栈的 ConfigurationError
func Configuration(key, format string, args ...any) error {
	return errors.WithStack(&ConfigurationError{Key: key, Reason: fmt.Sprintf(format, args...)})
}

// IsTransient 锁等待超时或序列化冲突，未产生任何部分写入，调用方可重试
func IsTransient(err error) bool {
	return errors.Is(err, ErrLockTimeout) || errors.Is(err, ErrConcurrency)
}

// AsInsufficient 提取资源不足详情
func AsInsufficient(err error) (*InsufficientError, bool) {
	var ie *InsufficientError
	if errors.As(err, &ie) {
		return ie, true
	}
	return nil, false
}

// AsValidation 提取参数错误详情
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
