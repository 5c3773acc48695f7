package symbol

import "strings"

// TencentConverter 腾讯行情代码：sh600519、hk00700、usAAPL。
type TencentConverter struct{}

func (TencentConverter) ToProvider(s Symbol) string {
	switch s.Market {
	case MarketSH, MarketSZ, MarketBJ, MarketHK:
		return string(s.Market) + s.Code
	case MarketUS:
		return "us" + s.Code
	default:
		return ""
	}
}

func (TencentConverter) FromProvider(raw string) Symbol {
	s := strings.TrimSpace(raw)
	lower := strings.ToLower(s)
	switch {
	case strings.HasPrefix(lower, "hk"):
		return Symbol{Code: s[2:], Market: MarketHK}
	case strings.HasPrefix(lower, "us"):
		return Symbol{Code: strings.ToUpper(s[2:]), Market: MarketUS}
	default:
		return Parse(s)
	}
}

func (TencentConverter) Format() Format { return FormatTencent }

var Tencent Converter = TencentConverter{}
