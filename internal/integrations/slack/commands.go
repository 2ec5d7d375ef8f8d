package slackbot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"propdesk/internal/domain"
)

var errUsage = errors.New("usage")

// splitKind reads the leading kind word of a command and returns the rest of
// the text untouched.
func splitKind(text string) (domain.Kind, string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", "", fmt.Errorf("%w: missing kind", errUsage)
	}
	word, rest, _ := strings.Cut(text, " ")
	kind, err := domain.ParseKind(word)
	if err != nil {
		return "", "", err
	}
	return kind, strings.TrimSpace(rest), nil
}

type filtersOp string

const (
	filtersSave   filtersOp = "save"
	filtersList   filtersOp = "list"
	filtersDelete filtersOp = "delete"
	filtersApply  filtersOp = "apply"
)

type filtersCommand struct {
	Op   filtersOp
	Kind domain.Kind // save: required, list: optional
	Arg  string      // name for save, id for delete and apply
}

// parseFiltersCommand understands:
//
//	save <kind> <name...>
//	list [kind]
//	delete <id>
//	apply <id>
func parseFiltersCommand(text string) (filtersCommand, error) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return filtersCommand{}, fmt.Errorf("%w: missing subcommand", errUsage)
	}
	op := filtersOp(strings.ToLower(fields[0]))
	args := fields[1:]
	switch op {
	case filtersSave:
		if len(args) < 2 {
			return filtersCommand{}, fmt.Errorf("%w: save needs a kind and a name", errUsage)
		}
		kind, err := domain.ParseKind(args[0])
		if err != nil {
			return filtersCommand{}, err
		}
		return filtersCommand{Op: op, Kind: kind, Arg: strings.Join(args[1:], " ")}, nil
	case filtersList:
		if len(args) == 0 {
			return filtersCommand{Op: op}, nil
		}
		kind, err := domain.ParseKind(args[0])
		if err != nil {
			return filtersCommand{}, err
		}
		return filtersCommand{Op: op, Kind: kind}, nil
	case filtersDelete, filtersApply:
		if len(args) != 1 {
			return filtersCommand{}, fmt.Errorf("%w: %s needs exactly one filter id", errUsage, op)
		}
		return filtersCommand{Op: op, Arg: args[0]}, nil
	default:
		return filtersCommand{}, fmt.Errorf("%w: unknown subcommand %q", errUsage, fields[0])
	}
}

type selectOp string

const (
	selectToggle selectOp = "toggle"
	selectAll    selectOp = "all"
	selectClear  selectOp = "clear"
	selectShow   selectOp = "show"
)

type selectCommand struct {
	Kind domain.Kind
	Op   selectOp
	IDs  []string
}

// parseSelectCommand understands "<kind> toggle <id...>", "<kind> all",
// "<kind> clear" and "<kind>" or "<kind> show".
func parseSelectCommand(text string) (selectCommand, error) {
	kind, rest, err := splitKind(text)
	if err != nil {
		return selectCommand{}, err
	}
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return selectCommand{Kind: kind, Op: selectShow}, nil
	}
	op := selectOp(strings.ToLower(fields[0]))
	switch op {
	case selectToggle:
		if len(fields) < 2 {
			return selectCommand{}, fmt.Errorf("%w: toggle needs at least one id", errUsage)
		}
		return selectCommand{Kind: kind, Op: op, IDs: fields[1:]}, nil
	case selectAll, selectClear, selectShow:
		return selectCommand{Kind: kind, Op: op}, nil
	default:
		return selectCommand{}, fmt.Errorf("%w: unknown selection action %q", errUsage, fields[0])
	}
}

// Button values carry the kind so that a click lands on the right screen.
func actionValue(kind domain.Kind, arg string) string {
	return string(kind) + ":" + arg
}

func parseActionValue(v string) (domain.Kind, string, error) {
	k, arg, ok := strings.Cut(strings.TrimSpace(v), ":")
	if !ok {
		return "", "", fmt.Errorf("malformed action value %q", v)
	}
	kind, err := domain.ParseKind(k)
	if err != nil {
		return "", "", err
	}
	return kind, arg, nil
}

func parsePage(arg string) int {
	page, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil || page < 0 {
		return 0
	}
	return page
}
