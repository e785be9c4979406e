package curve

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/meenmo/hwbermudan/numerics"
)

// TenorToYears converts tenor strings like "1W", "3M", "10Y" to year fractions.
// A plain number is read as years.
func TenorToYears(tenor string) (float64, error) {
	tenor = strings.TrimSpace(strings.ToUpper(tenor))
	if tenor == "" {
		return 0, fmt.Errorf("TenorToYears: empty tenor: %w", numerics.ErrInvalidInput)
	}
	scale := 0.0
	switch tenor[len(tenor)-1] {
	case 'D':
		scale = 1.0 / 365.0
	case 'W':
		scale = 7.0 / 365.0
	case 'M':
		scale = 1.0 / 12.0
	case 'Y':
		scale = 1.0
	}
	if scale == 0 {
		v, err := strconv.ParseFloat(tenor, 64)
		if err != nil {
			return 0, fmt.Errorf("TenorToYears: invalid tenor %q: %w", tenor, numerics.ErrInvalidInput)
		}
		return v, nil
	}
	v, err := strconv.Atoi(tenor[:len(tenor)-1])
	if err != nil {
		return 0, fmt.Errorf("TenorToYears: invalid tenor %q: %w", tenor, numerics.ErrInvalidInput)
	}
	return float64(v) * scale, nil
}
