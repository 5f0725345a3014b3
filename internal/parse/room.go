package parse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	spaceRe = regexp.MustCompile(`\s+`)
	// "3F-12", "B 2F 05", "2层-7", "B2-07"
	explicitFloorRe = regexp.MustCompile(`(?i)^(?:([a-z]+)\s*-?\s*)?(\d+)\s*(?:(?:F|层)\s*-?|-)\s*(\d+)$`)
	// "101", "A-203", "B1204"
	compactRe = regexp.MustCompile(`(?i)^(?:([a-z]+)\s*-?\s*)?(\d{3,4})$`)
)

// RoomLabel holds the structured parts of a room number.
type RoomLabel struct {
	Block string
	Floor int
	Seq   int
}

// ParseRoomLabel infers block, floor and sequence from a room number.
// Compact labels carry the floor in every digit but the last two.
func ParseRoomLabel(raw string) (RoomLabel, error) {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, "#", " ")
	s = strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))

	var label RoomLabel
	if m := explicitFloorRe.FindStringSubmatch(s); m != nil {
		floor, errFloor := strconv.Atoi(m[2])
		seq, errSeq := strconv.Atoi(m[3])
		if errFloor == nil && errSeq == nil {
			label = RoomLabel{Block: strings.ToUpper(m[1]), Floor: floor, Seq: seq}
		}
	} else if m := compactRe.FindStringSubmatch(s); m != nil {
		digits := m[2]
		floor, errFloor := strconv.Atoi(digits[:len(digits)-2])
		seq, errSeq := strconv.Atoi(digits[len(digits)-2:])
		if errFloor == nil && errSeq == nil {
			label = RoomLabel{Block: strings.ToUpper(m[1]), Floor: floor, Seq: seq}
		}
	}

	if label.Floor == 0 {
		return RoomLabel{}, fmt.Errorf("unable to infer floor from room number: %q", raw)
	}
	return label, nil
}
