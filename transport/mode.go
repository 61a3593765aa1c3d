package transport

import (
	"fmt"
	"strings"
)

// Mode decides whether the chain tries the origin directly, only through proxies, or both.
type Mode string

const (
	ModeDirect Mode = "direct"
	ModeProxy  Mode = "proxy"
	ModeAuto   Mode = "auto"
)

func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeDirect, ModeProxy, ModeAuto:
		return m, nil
	case "":
		return ModeAuto, nil
	default:
		return "", fmt.Errorf("unknown cors mode %q", s)
	}
}

func (m Mode) allowsDirect() bool { return m == ModeDirect || m == ModeAuto }
func (m Mode) allowsProxy() bool  { return m == ModeProxy || m == ModeAuto }
