package currency

import (
	"fmt"
	"math"
	"strings"
)

type style struct {
	decimals  int
	thousands byte
	decimal   byte
}

var styles = map[string]style{
	"IDR": {0, '.', ','},
	"JPY": {0, ',', '.'},
	"KRW": {0, ',', '.'},
	"EUR": {2, '.', ','},
}

var defaultStyle = style{2, ',', '.'}

// Format renders an amount with its ISO currency code, e.g. "USD 1,234.50"
// or "IDR 1.500.000".
func Format(amount float64, code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		code = "USD"
	}
	st, ok := styles[code]
	if !ok {
		st = defaultStyle
	}

	scale := math.Pow10(st.decimals)
	rounded := math.Round(amount*scale) / scale

	negative := rounded < 0
	if negative {
		rounded = -rounded
	}

	raw := fmt.Sprintf("%.*f", st.decimals, rounded)
	intPart, fracPart, _ := strings.Cut(raw, ".")

	formatted := addThousandsSeparator(intPart, st.thousands)
	if st.decimals > 0 {
		formatted += string(st.decimal) + fracPart
	}

	result := code + " " + formatted
	if negative {
		result = "-" + result
	}
	return result
}

func addThousandsSeparator(s string, sep byte) string {
	n := len(s)
	if n <= 3 {
		return s
	}

	numSeps := (n - 1) / 3
	result := make([]byte, n+numSeps)

	j := len(result) - 1
	for i := n - 1; i >= 0; i-- {
		result[j] = s[i]
		j--

		pos := n - i
		if pos%3 == 0 && i > 0 {
			result[j] = sep
			j--
		}
	}

	return string(result)
}
