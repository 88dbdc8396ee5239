// Package response interprets the acknowledgement a Zabbix trapper sends back.
package response

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/shopspring/decimal"

	internalerrors "github.com/Schera-ole/zabbix-sender/internal/errors"
)

const (
	// StatusSuccess is the response value of an accepted request.
	StatusSuccess = "success"

	// StatusFailed is the response value of a rejected request.
	StatusFailed = "failed"
)

// infoPattern matches the info line, e.g.
// "processed: 41; failed: 2; total: 43; seconds spent: 31.41592".
// Label case of the first letter and the colons are optional.
var infoPattern = regexp.MustCompile(
	`^[Pp]rocessed:? (\d*);? [Ff]ailed:? (\d*);? [Tt]otal:? (\d*);? [Ss]econds spent:? (\d*\.\d*)`,
)

// Result is the outcome of one exchange as reported by the server.
type Result struct {
	// Processed is the number of values the server accepted
	Processed uint64 `json:"processed"`

	// Failed is the number of values the server rejected
	Failed uint64 `json:"failed"`

	// Total is the number of values the server received
	Total uint64 `json:"total"`

	// Time is the server side processing time in seconds
	Time decimal.Decimal `json:"seconds_spent"`
}

// Info renders r in the format the server uses for its info field.
func (r Result) Info() string {
	return fmt.Sprintf("processed: %d; failed: %d; total: %d; seconds spent: %s",
		r.Processed, r.Failed, r.Total, r.Time.StringFixed(6))
}

func (r Result) String() string {
	return r.Info()
}

// Success builds the payload a server returns for an accepted request.
func Success(r Result) map[string]any {
	return map[string]any{
		"response": StatusSuccess,
		"info":     r.Info(),
	}
}

// Failure builds the payload a server returns for a rejected request.
func Failure(info string) map[string]any {
	return map[string]any{
		"response": StatusFailed,
		"info":     info,
	}
}

// Parse extracts the result from a decoded response payload.
func Parse(payload map[string]any) (Result, error) {
	status, ok := payload["response"].(string)
	if !ok || status != StatusSuccess {
		if info, ok := payload["info"].(string); ok {
			return Result{}, fmt.Errorf("%w: response %v: %s", internalerrors.ErrProtocol, payload["response"], info)
		}
		return Result{}, fmt.Errorf("%w: response %v", internalerrors.ErrProtocol, payload["response"])
	}

	info, ok := payload["info"].(string)
	if !ok {
		return Result{}, fmt.Errorf("%w: info is missing", internalerrors.ErrProtocol)
	}

	return ParseInfo(info)
}

// ParseInfo extracts the result from the info line of a successful response.
func ParseInfo(info string) (Result, error) {
	groups := infoPattern.FindStringSubmatch(info)
	if groups == nil {
		return Result{}, fmt.Errorf("%w: %q", internalerrors.ErrFormat, info)
	}

	var counts [3]uint64
	for i := range counts {
		n, err := strconv.ParseUint(groups[i+1], 10, 64)
		if err != nil {
			return Result{}, fmt.Errorf("%w: %q: %w", internalerrors.ErrFormat, info, err)
		}
		counts[i] = n
	}

	spent, err := decimal.NewFromString(groups[4])
	if err != nil {
		return Result{}, fmt.Errorf("%w: %q: %w", internalerrors.ErrFormat, info, err)
	}

	return Result{
		Processed: counts[0],
		Failed:    counts[1],
		Total:     counts[2],
		Time:      spent,
	}, nil
}
