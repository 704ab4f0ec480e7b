package config

import (
	"fmt"
	"reflect"
)

// MergeConfig 把 src 中的非零值覆盖到 dst 上并返回 dst
// 用于"默认配置 + 用户部分配置"的场景；任一为 nil 时返回另一个
func MergeConfig[T any](dst, src *T) (*T, error) {
	switch {
	case dst == nil && src == nil:
		return nil, ErrNilConfig
	case dst == nil:
		return src, nil
	case src == nil:
		return dst, nil
	}

	if err := merge(reflect.ValueOf(dst).Elem(), reflect.ValueOf(src).Elem()); err != nil {
		return nil, err
	}
	return dst, nil
}

func merge(dst, src reflect.Value) error {
	if !src.IsValid() || src.IsZero() {
		return nil
	}

	switch dst.Kind() {
	case reflect.Struct:
		t := src.Type()
		for i := 0; i < src.NumField(); i++ {
			if !t.Field(i).IsExported() {
				continue
			}
			if err := merge(dst.Field(i), src.Field(i)); err != nil {
				return fmt.Errorf("field %s: %w", t.Field(i).Name, err)
			}
		}
		return nil

	case reflect.Map:
		if dst.IsNil() {
			dst.Set(reflect.MakeMapWithSize(dst.Type(), src.Len()))
		}
		iter := src.MapRange()
		for iter.Next() {
			existing := dst.MapIndex(iter.Key())
			if !existing.IsValid() {
				dst.SetMapIndex(iter.Key(), iter.Value())
				continue
			}
			// map 元素不可寻址，先拷贝再合并
			elem := reflect.New(dst.Type().Elem()).Elem()
			elem.Set(existing)
			if err := merge(elem, iter.Value()); err != nil {
				return err
			}
			dst.SetMapIndex(iter.Key(), elem)
		}
		return nil

	case reflect.Ptr:
		if dst.IsNil() {
			dst.Set(reflect.New(dst.Type().Elem()))
		}
		return merge(dst.Elem(), src.Elem())

	default:
		// 基本类型与切片整体覆盖
		if !dst.CanSet() {
			return fmt.Errorf("cannot set %s", dst.Type())
		}
		dst.Set(src)
		return nil
	}
}
