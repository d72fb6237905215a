package flags

import (
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/pflag"
)

const (
	toggleTrueValueConstant           = "true"
	toggleFalseValueConstant          = "false"
	toggleTypeNameConstant            = "bool"
	toggleInvalidValueTemplate        = "invalid toggle value %q (expected yes or no)"
	toggleEnabledPlaceholder          = "<YES|no>"
	toggleDisabledPlaceholder         = "<yes|NO>"
	toggleUsageTemplate               = "`%s` %s"
	toggleBareUsageTemplate           = "`%s`"
	longFlagPrefixConstant            = "--"
	shortFlagPrefixConstant           = "-"
	flagValueSeparatorConstant        = "="
	argumentTerminatorConstant        = "--"
	shorthandLengthConstant           = 1
	joinedToggleArgumentCountConstant = 2
)

var toggleLiterals = map[string]bool{
	"true": true, "yes": true, "on": true, "1": true, "t": true, "y": true,
	"false": false, "no": false, "off": false, "0": false, "f": false, "n": false,
}

// toggleRegistry remembers which flag names accept a detached yes/no value.
type toggleRegistry struct {
	mutex      sync.RWMutex
	names      map[string]struct{}
	shorthands map[string]struct{}
}

var registeredToggles = &toggleRegistry{
	names:      map[string]struct{}{},
	shorthands: map[string]struct{}{},
}

func (registry *toggleRegistry) register(name string, shorthand string) {
	registry.mutex.Lock()
	defer registry.mutex.Unlock()
	registry.names[name] = struct{}{}
	if len(shorthand) > 0 {
		registry.shorthands[shorthand] = struct{}{}
	}
}

// accepts reports whether argument is a bare toggle flag such as --dry-run or -n.
func (registry *toggleRegistry) accepts(argument string) bool {
	if strings.Contains(argument, flagValueSeparatorConstant) {
		return false
	}

	registry.mutex.RLock()
	defer registry.mutex.RUnlock()

	if strings.HasPrefix(argument, longFlagPrefixConstant) {
		_, known := registry.names[strings.TrimPrefix(argument, longFlagPrefixConstant)]
		return known
	}
	if strings.HasPrefix(argument, shortFlagPrefixConstant) {
		shorthand := strings.TrimPrefix(argument, shortFlagPrefixConstant)
		if len(shorthand) != shorthandLengthConstant {
			return false
		}
		_, known := registry.shorthands[shorthand]
		return known
	}
	return false
}

// AddToggleFlag registers a boolean flag that also accepts yes/no, on/off and 1/0 values.
func AddToggleFlag(flagSet *pflag.FlagSet, target *bool, name string, shorthand string, defaultValue bool, usage string) {
	if flagSet == nil || len(name) == 0 {
		return
	}

	value := &toggleValue{enabled: defaultValue, target: target}
	if target != nil {
		*target = defaultValue
	}
	flagSet.VarP(value, name, shorthand, usage)

	registeredFlag := flagSet.Lookup(name)
	registeredFlag.NoOptDefVal = toggleTrueValueConstant
	registeredFlag.Usage = describeToggle(usage, defaultValue)

	registeredToggles.register(name, shorthand)
}

// NormalizeToggleArguments joins "--flag value" into "--flag=value" for registered toggles.
// A following argument that is not a toggle literal stays positional.
func NormalizeToggleArguments(arguments []string) []string {
	if len(arguments) == 0 {
		return nil
	}

	normalized := make([]string, 0, len(arguments))
	for index := 0; index < len(arguments); index++ {
		argument := arguments[index]
		if argument == argumentTerminatorConstant {
			return append(normalized, arguments[index:]...)
		}

		nextIndex := index + 1
		if registeredToggles.accepts(argument) && nextIndex < len(arguments) && isToggleLiteral(arguments[nextIndex]) {
			normalized = append(normalized, argument+flagValueSeparatorConstant+arguments[nextIndex])
			index += joinedToggleArgumentCountConstant - 1
			continue
		}
		normalized = append(normalized, argument)
	}
	return normalized
}

func describeToggle(description string, defaultValue bool) string {
	placeholder := toggleDisabledPlaceholder
	if defaultValue {
		placeholder = toggleEnabledPlaceholder
	}
	trimmedDescription := strings.TrimSpace(description)
	if len(trimmedDescription) == 0 {
		return fmt.Sprintf(toggleBareUsageTemplate, placeholder)
	}
	return fmt.Sprintf(toggleUsageTemplate, placeholder, trimmedDescription)
}

func parseToggle(rawValue string) (bool, error) {
	normalizedValue := strings.ToLower(strings.TrimSpace(rawValue))
	if len(normalizedValue) == 0 {
		return true, nil
	}
	enabled, known := toggleLiterals[normalizedValue]
	if !known {
		return false, fmt.Errorf(toggleInvalidValueTemplate, rawValue)
	}
	return enabled, nil
}

func isToggleLiteral(value string) bool {
	_, known := toggleLiterals[strings.ToLower(strings.TrimSpace(value))]
	return known
}

type toggleValue struct {
	enabled bool
	target  *bool
}

func (value *toggleValue) Set(rawValue string) error {
	enabled, parseError := parseToggle(rawValue)
	if parseError != nil {
		return parseError
	}
	value.enabled = enabled
	if value.target != nil {
		*value.target = enabled
	}
	return nil
}

func (value *toggleValue) String() string {
	if value != nil && value.enabled {
		return toggleTrueValueConstant
	}
	return toggleFalseValueConstant
}

func (value *toggleValue) Type() string {
	return toggleTypeNameConstant
}
