// Package address defines link-layer (L2) and network-layer (L3) node
// identifiers. Both are plain integers so they order and hash like one and
// can key maps and sorted slices directly.
package address

import "strconv"

// L2Type is a link-layer (MAC) address.
type L2Type int64

// L3Type is a network-layer address.
type L3Type int64

const (
	L2Broadcast L2Type = -1
	L2Null      L2Type = 0
	L3Broadcast L3Type = -1
	L3Null      L3Type = 0
)

func IsL2Broadcast(a L2Type) bool {
	return a == L2Broadcast
}

func IsL3Broadcast(a L3Type) bool {
	return a == L3Broadcast
}

func IsL2Null(a L2Type) bool {
	return a == L2Null
}

func IsL3Null(a L3Type) bool {
	return a == L3Null
}

func (a L2Type) String() string {
	switch a {
	case L2Broadcast:
		return "broadcast"
	case L2Null:
		return "null"
	default:
		return strconv.FormatInt(int64(a), 10)
	}
}

func (a L3Type) String() string {
	switch a {
	case L3Broadcast:
		return "broadcast"
	case L3Null:
		return "null"
	default:
		return strconv.FormatInt(int64(a), 10)
	}
}
