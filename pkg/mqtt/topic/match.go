package topic

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmpty        = errors.New("topic must not be empty")
	ErrTooLong      = errors.New("topic exceeds the maximum length")
	ErrWildcardName = errors.New("topic name must not contain wildcards")
	ErrBadWildcard  = errors.New("wildcards must occupy a whole topic level and '#' must be last")
	ErrNullChar     = errors.New("topic must not contain a null character")
)

// Match reports whether topic matches filter (supports wildcards + and #,
// and the $share/<group>/ prefix).
func Match(filter, topic string) bool {
	filter = Unshare(filter)
	if filter == topic {
		return true
	}

	// Optimization: if no wildcards, we are done.
	if !strings.Contains(filter, Wildcard) && !strings.Contains(filter, MultiWildcard) {
		return false
	}

	// Wildcards never match topics beginning with '$'.
	if strings.HasPrefix(topic, "$") && !strings.HasPrefix(filter, "$") {
		return false
	}

	filterParts := strings.Split(filter, Separator)
	topicParts := strings.Split(topic, Separator)

	for i, part := range filterParts {
		if part == MultiWildcard {
			return true
		}
		if i >= len(topicParts) {
			return false
		}
		if part != Wildcard && part != topicParts[i] {
			return false
		}
	}

	return len(filterParts) == len(topicParts)
}

// Unshare strips a $share/<group>/ prefix from filter.
func Unshare(filter string) string {
	if strings.HasPrefix(filter, SharePrefix) {
		// Format: $share/<group>/<topic>
		parts := strings.SplitN(filter, Separator, 3)
		if len(parts) == 3 {
			return parts[2]
		}
	}
	return filter
}

// ValidateName checks a topic used for publishing.
func ValidateName(name string) error {
	if err := validateCommon(name); err != nil {
		return err
	}
	if strings.ContainsAny(name, Wildcard+MultiWildcard) {
		return fmt.Errorf("%q: %w", name, ErrWildcardName)
	}
	return nil
}

// ValidateFilter checks a topic filter used for subscribing.
func ValidateFilter(filter string) error {
	if err := validateCommon(filter); err != nil {
		return err
	}
	if strings.HasPrefix(filter, SharePrefix) {
		parts := strings.SplitN(filter, Separator, 3)
		if len(parts) != 3 || parts[1] == "" || parts[2] == "" {
			return fmt.Errorf("%q: shared subscription must be $share/<group>/<filter>", filter)
		}
		filter = parts[2]
	}

	levels := strings.Split(filter, Separator)
	for i, level := range levels {
		switch {
		case level == MultiWildcard && i != len(levels)-1:
			return fmt.Errorf("%q: %w", filter, ErrBadWildcard)
		case level != Wildcard && level != MultiWildcard && strings.ContainsAny(level, Wildcard+MultiWildcard):
			return fmt.Errorf("%q: %w", filter, ErrBadWildcard)
		}
	}
	return nil
}

func validateCommon(s string) error {
	switch {
	case s == "":
		return ErrEmpty
	case len(s) > MaxLength:
		return ErrTooLong
	case strings.ContainsRune(s, 0):
		return ErrNullChar
	}
	return nil
}
