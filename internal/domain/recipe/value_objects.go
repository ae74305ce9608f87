package recipe

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Ingredient is one line of a recipe's ingredient list.
type Ingredient struct {
	Name   string `json:"name"`
	Amount Amount `json:"amount"`
	Unit   string `json:"unit"`
}

// Amount is an ingredient quantity. The generation backend sends it as a
// string ("1/2") or as a bare number (0.5); both are kept as text.
type Amount string

// UnmarshalJSON accepts a string, a number or null.
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*a = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = Amount(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("amount must be a string or a number: %w", err)
	}
	*a = Amount(n.String())
	return nil
}

// CookingTime holds preparation, cooking and total minutes.
type CookingTime struct {
	PrepTime  int `json:"prep_time"`
	CookTime  int `json:"cook_time"`
	TotalTime int `json:"total_time"`
}

// UnmarshalJSON accepts the object form or a flat number of minutes. A flat
// value N becomes {prep_time: 0, cook_time: N, total_time: N}; missing object
// fields stay 0.
func (c *CookingTime) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*c = CookingTime{}
		return nil
	}

	if data[0] == '{' {
		var aux struct {
			PrepTime  *minutes `json:"prep_time"`
			CookTime  *minutes `json:"cook_time"`
			TotalTime *minutes `json:"total_time"`
		}
		if err := json.Unmarshal(data, &aux); err != nil {
			return err
		}
		*c = CookingTime{
			PrepTime:  aux.PrepTime.int(),
			CookTime:  aux.CookTime.int(),
			TotalTime: aux.TotalTime.int(),
		}
		return nil
	}

	var flat minutes
	if err := json.Unmarshal(data, &flat); err != nil {
		return fmt.Errorf("cooking_time must be an object or a number: %w", err)
	}
	*c = CookingTime{CookTime: flat.int(), TotalTime: flat.int()}
	return nil
}

// minutes decodes a JSON number or numeric string, rounding fractions.
type minutes int

func (m *minutes) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(bytes.TrimSpace(data), `"`)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*m = 0
		return nil
	}
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("invalid minutes %q", data)
	}
	*m = minutes(math.Round(f))
	return nil
}

func (m *minutes) int() int {
	if m == nil {
		return 0
	}
	return int(*m)
}
