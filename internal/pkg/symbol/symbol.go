// Package symbol maps user-entered stock codes onto exchange markets and the
// list codes used by each quote provider.
package symbol

import "strings"

type Format string

const (
	FormatInternal Format = "internal"
	FormatSina     Format = "sina"
	FormatTencent  Format = "tencent"
)

type Market string

const (
	MarketSH Market = "sh"
	MarketSZ Market = "sz"
	MarketBJ Market = "bj"
	MarketHK Market = "hk"
	MarketUS Market = "us"
)

// Converter 在内部代码与行情源代码之间转换。
type Converter interface {
	ToProvider(s Symbol) string

	FromProvider(raw string) Symbol

	Format() Format
}

// Symbol 内部统一表示：大写代码加所属市场。
type Symbol struct {
	Code   string
	Market Market
}

func (s Symbol) Valid() bool {
	return s.Code != "" && s.Market != ""
}

func (s Symbol) String() string {
	return s.Code
}

// Parse 识别代码所属市场：
// 6 开头六位为沪市，0/3 开头为深市，4/8 开头为北交所，五位数字为港股，含字母为美股。
// 已带 sh/sz/bj 前缀的代码保留原市场。
func Parse(raw string) Symbol {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s == "" {
		return Symbol{}
	}
	for _, m := range []Market{MarketSH, MarketSZ, MarketBJ} {
		prefix := strings.ToUpper(string(m))
		if rest := strings.TrimPrefix(s, prefix); rest != s && len(rest) == 6 && allDigits(rest) {
			return Symbol{Code: rest, Market: m}
		}
	}
	if allDigits(s) {
		switch len(s) {
		case 6:
			switch s[0] {
			case '0', '3':
				return Symbol{Code: s, Market: MarketSZ}
			case '4', '8':
				return Symbol{Code: s, Market: MarketBJ}
			default:
				return Symbol{Code: s, Market: MarketSH}
			}
		case 5:
			return Symbol{Code: s, Market: MarketHK}
		default:
			return Symbol{}
		}
	}
	if s[0] < 'A' || s[0] > 'Z' {
		return Symbol{}
	}
	for _, r := range s {
		if !isASCIIAlnum(r) && r != '.' && r != '-' {
			return Symbol{}
		}
	}
	return Symbol{Code: s, Market: MarketUS}
}

// Normalize 返回内部代码，无法识别时返回空串。
func Normalize(s string) string {
	sym := Parse(s)
	if !sym.Valid() {
		return ""
	}
	return sym.Code
}

func IsValid(s string) bool {
	return Parse(s).Valid()
}

// NormalizeList 去重并保持原始顺序。
func NormalizeList(symbols []string) []string {
	if len(symbols) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		norm := Normalize(s)
		if norm == "" {
			continue
		}
		if _, ok := seen[norm]; ok {
			continue
		}
		seen[norm] = struct{}{}
		out = append(out, norm)
	}
	return out
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func isASCIIAlnum(r rune) bool {
	return (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}
