package symbol

import "strings"

// SinaConverter 新浪行情代码：sh600519、rt_hk00700、gb_aapl。
type SinaConverter struct{}

func (SinaConverter) ToProvider(s Symbol) string {
	switch s.Market {
	case MarketSH, MarketSZ, MarketBJ:
		return string(s.Market) + s.Code
	case MarketHK:
		return "rt_hk" + s.Code
	case MarketUS:
		return "gb_" + strings.ToLower(strings.ReplaceAll(s.Code, ".", "$"))
	default:
		return ""
	}
}

func (SinaConverter) FromProvider(raw string) Symbol {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case strings.HasPrefix(s, "rt_hk"):
		return Symbol{Code: strings.TrimPrefix(s, "rt_hk"), Market: MarketHK}
	case strings.HasPrefix(s, "gb_"):
		code := strings.ReplaceAll(strings.TrimPrefix(s, "gb_"), "$", ".")
		return Symbol{Code: strings.ToUpper(code), Market: MarketUS}
	default:
		return Parse(s)
	}
}

func (SinaConverter) Format() Format { return FormatSina }

var Sina Converter = SinaConverter{}
