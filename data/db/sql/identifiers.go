package sql

import "strings"

// isSafeIdentifier 判断标识符是否为安全的数据库标识符（foo、schema.table）。
// 每段首字符为字母或下划线，后续为字母、数字或下划线。
func isSafeIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for _, part := range strings.Split(name, ".") {
		if part == "" {
			return false
		}
		for i := 0; i < len(part); i++ {
			ch := part[i]
			alpha := (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_'
			if i == 0 && !alpha {
				return false
			}
			if i > 0 && !alpha && !(ch >= '0' && ch <= '9') {
				return false
			}
		}
	}
	return true
}

// EscapeLike 转义 LIKE 模式中的通配符，配合 ESCAPE '\' 使用
func EscapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
