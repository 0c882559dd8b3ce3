// Package inventory defines the payload stored in netinv trees: groups,
// servers and generic entities, plus the document format used to read and
// write whole inventories.
package inventory

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// ErrInvalidItem is wrapped by every validation failure.
var ErrInvalidItem = errors.New("invalid inventory item")

// Kind classifies an inventory item.
type Kind string

const (
	KindGroup  Kind = "group"
	KindServer Kind = "server"
	KindEntity Kind = "entity"
)

// ParseKind accepts a kind name or its first letter.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "group", "g":
		return KindGroup, nil
	case "server", "s":
		return KindServer, nil
	case "entity", "e":
		return KindEntity, nil
	}
	return "", fmt.Errorf("%w: unknown kind %q", ErrInvalidItem, s)
}

// Item is one inventory entry.
type Item struct {
	Kind  Kind     `yaml:"kind" json:"kind"`
	Name  string   `yaml:"name" json:"name"`
	Host  string   `yaml:"host,omitempty" json:"host,omitempty"`
	Port  int      `yaml:"port,omitempty" json:"port,omitempty"`
	User  string   `yaml:"user,omitempty" json:"user,omitempty"`
	Tags  []string `yaml:"tags,omitempty" json:"tags,omitempty"`
	Notes string   `yaml:"notes,omitempty" json:"notes,omitempty"`
}

// Group returns a group item with the given name.
func Group(name string) Item {
	return Item{Kind: KindGroup, Name: name}
}

// Server returns a server item.
func Server(name, host string, port int) Item {
	return Item{Kind: KindServer, Name: name, Host: host, Port: port}
}

// Entity returns a generic entity item.
func Entity(name string) Item {
	return Item{Kind: KindEntity, Name: name}
}

// Validate checks the item's fields.
func (it Item) Validate() error {
	switch it.Kind {
	case KindGroup, KindServer, KindEntity:
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidItem, it.Kind)
	}
	if strings.TrimSpace(it.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidItem)
	}
	if it.Kind == KindServer && strings.TrimSpace(it.Host) == "" {
		return fmt.Errorf("%w: server %q has no host", ErrInvalidItem, it.Name)
	}
	if it.Port < 0 || it.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidItem, it.Port)
	}
	return nil
}

// Equal reports whether both items carry the same fields.
func (it Item) Equal(other Item) bool {
	return it.Kind == other.Kind &&
		it.Name == other.Name &&
		it.Host == other.Host &&
		it.Port == other.Port &&
		it.User == other.User &&
		it.Notes == other.Notes &&
		slices.Equal(it.Tags, other.Tags)
}

// Equal is Item.Equal in function form, for use as a forest equality.
func Equal(a, b Item) bool {
	return a.Equal(b)
}

// Clone returns a copy that shares no slices with it.
func (it Item) Clone() Item {
	it.Tags = slices.Clone(it.Tags)
	return it
}

// Address returns "host:port", or just the host when no port is set.
func (it Item) Address() string {
	if it.Host == "" {
		return ""
	}
	if it.Port == 0 {
		return it.Host
	}
	return it.Host + ":" + strconv.Itoa(it.Port)
}

// String is the tree label: the name, plus the address for servers.
func (it Item) String() string {
	if addr := it.Address(); addr != "" {
		return fmt.Sprintf("%s (%s)", it.Name, addr)
	}
	return it.Name
}

// Set assigns a single field by name. Tags take a comma separated list.
func (it *Item) Set(field, value string) error {
	switch strings.ToLower(field) {
	case "kind":
		k, err := ParseKind(value)
		if err != nil {
			return err
		}
		it.Kind = k
	case "name":
		it.Name = value
	case "host":
		it.Host = value
	case "port":
		if value == "" {
			it.Port = 0
			return nil
		}
		p, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: port %q is not a number", ErrInvalidItem, value)
		}
		it.Port = p
	case "user":
		it.User = value
	case "tags":
		it.Tags = nil
		for _, tag := range strings.Split(value, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				it.Tags = append(it.Tags, tag)
			}
		}
	case "notes":
		it.Notes = value
	case "addr", "address":
		host, port, err := SplitAddress(value)
		if err != nil {
			return err
		}
		it.Host, it.Port = host, port
	default:
		return fmt.Errorf("%w: unknown field %q", ErrInvalidItem, field)
	}
	return nil
}

// SplitAddress parses "host" or "host:port".
func SplitAddress(addr string) (string, int, error) {
	addr = strings.TrimSpace(addr)
	i := strings.LastIndexByte(addr, ':')
	if i < 0 || strings.Count(addr, ":") > 1 {
		// Bare host, or an IPv6 literal without a port.
		return addr, 0, nil
	}
	port, err := strconv.Atoi(addr[i+1:])
	if err != nil {
		return "", 0, fmt.Errorf("%w: port in %q is not a number", ErrInvalidItem, addr)
	}
	return addr[:i], port, nil
}
