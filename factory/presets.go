package factory

import (
	"encoding/json"
)

// =============================================================================
// RECORD PRESETS - JSON builders for common records
// =============================================================================

// ItemJSON returns JSON for a monthly budget item due on day.
func ItemJSON(id, name, category string, amount float64, day int) string {
	return marshal(map[string]interface{}{
		"schema_version": 2,
		"id":             id,
		"name":           name,
		"category":       category,
		"amount":         amount,
		"rule": map[string]interface{}{
			"kind":               "monthly",
			"day":                day,
			"weekend_adjustment": "toNextWeekday",
		},
	})
}

// WeeklyItemJSON returns JSON for an item recurring on every weekday
// ("monday".."sunday") of the month.
func WeeklyItemJSON(id, name, category string, amount float64, weekday string) string {
	return marshal(map[string]interface{}{
		"schema_version": 2,
		"id":             id,
		"name":           name,
		"category":       category,
		"amount":         amount,
		"rule": map[string]interface{}{
			"kind":    "weekly",
			"weekday": weekday,
		},
	})
}

// BankAccountJSON returns JSON for a bank account balance.
func BankAccountJSON(id, name string, balance float64) string {
	return marshal(map[string]interface{}{
		"schema_version":  2,
		"id":              id,
		"name":            name,
		"category":        "bank",
		"amount":          0,
		"current_balance": balance,
		"rule":            map[string]interface{}{"kind": "monthly", "day": 1},
	})
}

// LegacyItemJSON returns a version 1 item: a bare day instead of a rule.
func LegacyItemJSON(id, name, category string, amount float64, day int) string {
	return marshal(map[string]interface{}{
		"schema_version": 1,
		"id":             id,
		"name":           name,
		"category":       category,
		"amount":         amount,
		"day":            day,
	})
}

// LoanJSON returns JSON for an installment loan paid on day, moved to the
// previous weekday when it falls on a weekend.
func LoanJSON(id, name string, balance, annualRate, payment float64, day int) string {
	return marshal(map[string]interface{}{
		"schema_version":  2,
		"id":              id,
		"name":            name,
		"current_balance": balance,
		"interest_rate":   annualRate,
		"monthly_payment": payment,
		"rule": map[string]interface{}{
			"kind":               "monthly",
			"day":                day,
			"weekend_adjustment": "toPreviousWeekday",
		},
	})
}

// CreditLineJSON returns JSON for revolving credit paid at month end.
func CreditLineJSON(id, name string, balance, limit, annualRate, payment float64) string {
	return marshal(map[string]interface{}{
		"schema_version":  2,
		"id":              id,
		"name":            name,
		"current_balance": balance,
		"max_limit":       limit,
		"interest_rate":   annualRate,
		"monthly_payment": payment,
		"rule": map[string]interface{}{
			"kind":               "monthEnd",
			"weekend_adjustment": "toPreviousWeekday",
		},
	})
}

// ClientJSON returns JSON for a client paying on the nth business day.
func ClientJSON(id, name string, amount float64, nthBusinessDay int) string {
	return marshal(map[string]interface{}{
		"schema_version": 2,
		"id":             id,
		"name":           name,
		"amount":         amount,
		"rule": map[string]interface{}{
			"kind": "monthlyBusinessDay",
			"nth":  nthBusinessDay,
		},
	})
}

func marshal(v map[string]interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}
