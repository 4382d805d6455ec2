package bitflag

import "sort"

// Flag represents a single bitflag
type Flag uint

// Container represents a bitflag container and provides methods to simplify working with them
type Container uint

// EmptyContainer provides an empty bitflag container
const EmptyContainer Container = 0

// Has checks if the container has all the given flags set
func (cur Container) Has(flags ...Flag) bool {
	for _, flag := range flags {
		if uint(cur)&uint(flag) == 0 {
			return false
		}
	}
	return true
}

// With returns a new container with the given flags and the current ones set
func (cur Container) With(flags ...Flag) Container {
	val := uint(cur)
	for _, flag := range flags {
		val |= uint(flag)
	}
	return Container(val)
}

// Without returns a new container with the current flags but without the given ones set
func (cur Container) Without(flags ...Flag) Container {
	val := uint(cur)
	for _, flag := range flags {
		val &= ^uint(flag)
	}
	return Container(val)
}

// Names returns the sorted names of all set flags that appear in names.
// Set flags without a name are skipped.
func (cur Container) Names(names map[Flag]string) []string {
	result := make([]string, 0, len(names))
	for flag, name := range names {
		if cur.Has(flag) {
			result = append(result, name)
		}
	}
	sort.Strings(result)
	return result
}
