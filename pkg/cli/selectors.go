package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"guacaman/internal/domain"
)

// addSelectorFlags registers the --name/--id pair used by every command that
// targets one existing entity.
func addSelectorFlags(cmd *cobra.Command, kind domain.Kind) {
	cmd.Flags().String("name", "", fmt.Sprintf("Name of the %s", kind))
	cmd.Flags().Int64("id", 0, fmt.Sprintf("Numeric ID of the %s", kind))
}

// selectorFromFlags builds the selector, distinguishing an absent --id from
// an explicit --id 0 so the latter is rejected as out of range rather than
// silently ignored.
func selectorFromFlags(cmd *cobra.Command, kind domain.Kind) (domain.Selector, error) {
	name, _ := cmd.Flags().GetString("name")
	id, _ := cmd.Flags().GetInt64("id")

	hasName := cmd.Flags().Changed("name") && name != ""
	hasID := cmd.Flags().Changed("id")

	if hasName == hasID {
		return domain.Selector{}, domain.ErrUsage("exactly one of --name or --id must be given for the %s", kind)
	}
	if hasID && id <= 0 {
		return domain.Selector{}, domain.ErrUsage("%s ID must be a positive integer greater than 0", kind)
	}
	if hasID {
		return domain.ByID(id), nil
	}
	return domain.ByName(name), nil
}

// parseSetFlags turns repeated --set key=value flags into a map.
func parseSetFlags(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	attrs := make(map[string]string, len(pairs))
	for _, p := range pairs {
		key, value, ok := strings.Cut(p, "=")
		if !ok || key == "" {
			return nil, domain.ErrUsage("--set expects key=value, got %q", p)
		}
		attrs[key] = value
	}
	return attrs, nil
}

// subjectFromFlags reads the four permission flags and reduces them to at
// most one grant and one revoke of a single subject kind.
type subjectFlags struct {
	Permit      string
	Deny        string
	SubjectKind domain.SubjectType
}

func addSubjectFlags(cmd *cobra.Command) {
	cmd.Flags().String("permit", "", "Grant access to the named user")
	cmd.Flags().String("deny", "", "Revoke access from the named user")
	cmd.Flags().String("permit-group", "", "Grant access to the named usergroup")
	cmd.Flags().String("deny-group", "", "Revoke access from the named usergroup")
}

func subjectFromFlags(cmd *cobra.Command) (subjectFlags, error) {
	permit, _ := cmd.Flags().GetString("permit")
	deny, _ := cmd.Flags().GetString("deny")
	permitGroup, _ := cmd.Flags().GetString("permit-group")
	denyGroup, _ := cmd.Flags().GetString("deny-group")

	userSide := permit != "" || deny != ""
	groupSide := permitGroup != "" || denyGroup != ""
	if userSide && groupSide {
		return subjectFlags{}, domain.ErrUsage("user and usergroup permission flags cannot be combined in one invocation")
	}
	if groupSide {
		return subjectFlags{Permit: permitGroup, Deny: denyGroup, SubjectKind: domain.SubjectUserGroup}, nil
	}
	return subjectFlags{Permit: permit, Deny: deny, SubjectKind: domain.SubjectUser}, nil
}
