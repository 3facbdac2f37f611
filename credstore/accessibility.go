package credstore

import "fmt"

// Accessibility 决定一个凭据在何时可被读取。默认值为 AccessibleWhenUnlocked 。
type Accessibility int

const (
	// AccessibleWhenUnlocked 仅在设备（会话）已解锁时可读取，随加密备份迁移到新设备。
	// 这是默认值。
	AccessibleWhenUnlocked Accessibility = iota

	// AccessibleWhenUnlockedThisDeviceOnly 仅在设备已解锁时可读取，不随备份迁移。
	AccessibleWhenUnlockedThisDeviceOnly

	// AccessibleAfterFirstUnlock 重启后直到第一次解锁前不可读取，之后一直可读取。随加密备份迁移。
	// 适合需要在后台访问的凭据。
	AccessibleAfterFirstUnlock

	// AccessibleAfterFirstUnlockThisDeviceOnly 同 AccessibleAfterFirstUnlock ，但不随备份迁移。
	AccessibleAfterFirstUnlockThisDeviceOnly

	// AccessibleAlways 总是可读取，无论设备是否锁定。随加密备份迁移。不建议使用。
	AccessibleAlways

	// AccessibleWhenPasscodeSetThisDeviceOnly 仅在设备已解锁且设置了密码时可读取，从不迁移。
	// 移除设备密码时，这类凭据会被删除。
	AccessibleWhenPasscodeSetThisDeviceOnly

	// AccessibleAlwaysThisDeviceOnly 总是可读取，不随备份迁移。不建议使用。
	AccessibleAlwaysThisDeviceOnly
)

// DefaultAccessibility 是未指定时使用的 Accessibility 。
const DefaultAccessibility = AccessibleWhenUnlocked

var accessibilityNames = [...]string{
	AccessibleWhenUnlocked:                   "WhenUnlocked",
	AccessibleWhenUnlockedThisDeviceOnly:     "WhenUnlockedThisDeviceOnly",
	AccessibleAfterFirstUnlock:               "AfterFirstUnlock",
	AccessibleAfterFirstUnlockThisDeviceOnly: "AfterFirstUnlockThisDeviceOnly",
	AccessibleAlways:                         "Always",
	AccessibleWhenPasscodeSetThisDeviceOnly:  "WhenPasscodeSetThisDeviceOnly",
	AccessibleAlwaysThisDeviceOnly:           "AlwaysThisDeviceOnly",
}

// Valid 判断当前值是否是预定义的七个值之一。
func (a Accessibility) Valid() bool {
	return a >= 0 && int(a) < len(accessibilityNames)
}

// String 实现 fmt.Stringer 。
func (a Accessibility) String() string {
	if !a.Valid() {
		return fmt.Sprintf("Accessibility(%d)", int(a))
	}
	return accessibilityNames[a]
}

// ThisDeviceOnly 判断凭据是否仅存在于当前设备，不随备份迁移。
func (a Accessibility) ThisDeviceOnly() bool {
	switch a {
	case AccessibleWhenUnlockedThisDeviceOnly,
		AccessibleAfterFirstUnlockThisDeviceOnly,
		AccessibleWhenPasscodeSetThisDeviceOnly,
		AccessibleAlwaysThisDeviceOnly:
		return true
	}
	return false
}

// RequiresUnlock 判断读取凭据时设备是否必须处于解锁状态。
func (a Accessibility) RequiresUnlock() bool {
	switch a {
	case AccessibleWhenUnlocked,
		AccessibleWhenUnlockedThisDeviceOnly,
		AccessibleWhenPasscodeSetThisDeviceOnly:
		return true
	}
	return false
}

// ParseAccessibility 解析 Accessibility.String 的输出。空字符串得到 DefaultAccessibility 。
func ParseAccessibility(s string) (Accessibility, error) {
	if s == "" {
		return DefaultAccessibility, nil
	}

	for i, name := range accessibilityNames {
		if name == s {
			return Accessibility(i), nil
		}
	}
	return 0, fmt.Errorf("unknown accessibility %q", s)
}
