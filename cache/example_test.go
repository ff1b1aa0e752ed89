package cache_test

import (
	"fmt"
	"time"

	"recordbin/cache"
)

// ExampleNew 演示创建缓存
func ExampleNew() {
	c := cache.New[string, string](cache.Config{
		Name:    "example",
		MaxSize: 100,
		TTL:     5 * time.Minute,
	})

	c.Set("key", "value")
	value, found := c.Get("key")
	fmt.Println(found, value)
	// Output: true value
}

// ExampleCache_Get 演示命中与未命中
func ExampleCache_Get() {
	c := cache.New[int64, string](cache.Config{Name: "labels", MaxSize: 10})
	c.Set(1, "INV-001")

	value, found := c.Get(1)
	fmt.Println("存在:", found, value)

	_, found = c.Get(2)
	fmt.Println("不存在:", found)

	// Output:
	// 存在: true INV-001
	// 不存在: false
}
