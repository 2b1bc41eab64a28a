package telegram

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"wf_reminder_bot/internal/domain/reminder"
)

var errUsage = errors.New("wrong command format")

// maxLeadMinutes bounds the lead time of a cycle reminder.
const maxLeadMinutes = 24 * 60

type cycleArgs struct {
	Region      string
	Phase       string
	LeadMinutes int
}

// parseCycleArgs reads "<region> <phase> [minutes_before]". Regions with
// spaces in their label may be given by key.
func parseCycleArgs(args []string) (cycleArgs, error) {
	if len(args) < 2 {
		return cycleArgs{}, errUsage
	}
	out := cycleArgs{}
	if n, err := strconv.Atoi(args[len(args)-1]); err == nil && len(args) >= 3 {
		if n < 0 || n > maxLeadMinutes {
			return cycleArgs{}, fmt.Errorf("minutes_before must be between 0 and %d", maxLeadMinutes)
		}
		out.LeadMinutes = n
		args = args[:len(args)-1]
	}
	out.Phase = args[len(args)-1]
	out.Region = strings.Join(args[:len(args)-1], " ")
	return out, nil
}

type marketArgs struct {
	Side  reminder.Side
	Price int
	Query string
	Rank  *int
}

// parseMarketArgs reads "<sell|buy> <price> <item...> [rank=N]".
func parseMarketArgs(args []string) (marketArgs, error) {
	if len(args) < 3 {
		return marketArgs{}, errUsage
	}
	out := marketArgs{Side: reminder.Side(strings.ToLower(args[0]))}
	if !out.Side.Valid() {
		return marketArgs{}, fmt.Errorf("side must be sell or buy, got %q", args[0])
	}
	price, err := strconv.Atoi(args[1])
	if err != nil || price < 0 {
		return marketArgs{}, fmt.Errorf("price must be a whole number of platinum, got %q", args[1])
	}
	out.Price = price

	rest := args[2:]
	if last := strings.ToLower(rest[len(rest)-1]); strings.HasPrefix(last, "rank=") {
		rank, err := strconv.Atoi(strings.TrimPrefix(last, "rank="))
		if err != nil {
			return marketArgs{}, fmt.Errorf("rank must be a number, got %q", last)
		}
		out.Rank = &rank
		rest = rest[:len(rest)-1]
	}
	out.Query = strings.Join(rest, " ")
	if out.Query == "" {
		return marketArgs{}, errUsage
	}
	return out, nil
}

// parseFissureArgs reads "<mission...> [difficulty]".
func parseFissureArgs(args []string) (string, reminder.Difficulty, error) {
	if len(args) == 0 {
		return "", "", errUsage
	}
	difficulty := reminder.DifficultyAll
	if len(args) > 1 {
		if d, err := reminder.ParseDifficulty(args[len(args)-1]); err == nil {
			difficulty = d
			args = args[:len(args)-1]
		}
	}
	return strings.Join(args, " "), difficulty, nil
}

// parseRemindIn reads "<minutes> <label...>".
func parseRemindIn(args []string) (int, string, error) {
	if len(args) < 2 {
		return 0, "", errUsage
	}
	minutes, err := strconv.Atoi(args[0])
	if err != nil || minutes <= 0 || minutes > 7*24*60 {
		return 0, "", fmt.Errorf("minutes must be between 1 and %d, got %q", 7*24*60, args[0])
	}
	return minutes, strings.Join(args[1:], " "), nil
}

// parseCancelArg accepts a 1-based listing index or a reminder id. Short
// numbers are indexes; anything id-length is an id.
func parseCancelArg(args []string) (index int, id string, err error) {
	if len(args) != 1 {
		return 0, "", errUsage
	}
	if n, err := strconv.Atoi(args[0]); err == nil && len(args[0]) < 6 {
		if n < 1 {
			return 0, "", fmt.Errorf("index must be 1 or greater")
		}
		return n, "", nil
	}
	return 0, args[0], nil
}
