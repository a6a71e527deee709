package hw

import (
	"errors"
	"fmt"
)

// ErrNoDBInfo is returned for elements without dB information.
var ErrNoDBInfo = errors.New("element has no dB information")

// DBScale maps raw element values to dB, in 1/100 dB units.
type DBScale struct {
	ranges []dbRange
}

type dbRange struct {
	lo, hi       int64
	minDB, maxDB int64
}

// ParseDBScale parses a TLV blob for an element whose raw range is [lo, hi].
func ParseDBScale(words []uint32, lo, hi int64) (*DBScale, error) {
	s := &DBScale{}
	if err := s.parse(words, lo, hi); err != nil {
		return nil, err
	}

	if len(s.ranges) == 0 {
		return nil, ErrNoDBInfo
	}

	return s, nil
}

func (s *DBScale) parse(words []uint32, lo, hi int64) error {
	if len(words) < 2 {
		return fmt.Errorf("short TLV: %d words", len(words))
	}

	typ, size := words[0], int(words[1]+3)/4
	payload := words[2:]
	if size > len(payload) {
		return fmt.Errorf("TLV length %d exceeds buffer", size)
	}
	payload = payload[:size]

	switch typ {
	case SNDRV_CTL_TLVT_CONTAINER:
		for len(payload) >= 2 {
			n := 2 + int(payload[1]+3)/4
			if n > len(payload) {
				return fmt.Errorf("container entry exceeds buffer")
			}
			if err := s.parse(payload[:n], lo, hi); err != nil && !errors.Is(err, ErrNoDBInfo) {
				return err
			}
			payload = payload[n:]
		}
	case SNDRV_CTL_TLVT_DB_SCALE:
		if len(payload) < 2 {
			return fmt.Errorf("short DB_SCALE")
		}
		minDB := int64(int32(payload[0]))
		step := int64(payload[1] & 0xffff)
		s.ranges = append(s.ranges, dbRange{lo: lo, hi: hi, minDB: minDB, maxDB: minDB + (hi-lo)*step})
	case SNDRV_CTL_TLVT_DB_MINMAX, SNDRV_CTL_TLVT_DB_MINMAX_MUTE, SNDRV_CTL_TLVT_DB_LINEAR:
		if len(payload) < 2 {
			return fmt.Errorf("short DB_MINMAX")
		}
		s.ranges = append(s.ranges, dbRange{lo: lo, hi: hi, minDB: int64(int32(payload[0])), maxDB: int64(int32(payload[1]))})
	case SNDRV_CTL_TLVT_DB_RANGE:
		for len(payload) >= 4 {
			rlo, rhi := int64(payload[0]), int64(payload[1])
			n := 2 + int(payload[3]+3)/4
			if 2+n > len(payload) {
				return fmt.Errorf("range entry exceeds buffer")
			}
			if err := s.parse(payload[2:2+n], rlo, rhi); err != nil {
				return err
			}
			payload = payload[2+n:]
		}
	default:
		return ErrNoDBInfo
	}

	return nil
}

// MinDB returns the lowest dB value the element can reach.
func (s *DBScale) MinDB() int64 {
	minDB := s.ranges[0].minDB
	for _, r := range s.ranges[1:] {
		minDB = min(minDB, r.minDB)
	}

	return minDB
}

// MaxDB returns the highest dB value the element can reach.
func (s *DBScale) MaxDB() int64 {
	maxDB := s.ranges[0].maxDB
	for _, r := range s.ranges[1:] {
		maxDB = max(maxDB, r.maxDB)
	}

	return maxDB
}

// ToDB converts a raw value to dB.
func (s *DBScale) ToDB(v int64) int64 {
	for _, r := range s.ranges {
		if v >= r.lo && v <= r.hi {
			if r.hi == r.lo {
				return r.minDB
			}

			return r.minDB + (v-r.lo)*(r.maxDB-r.minDB)/(r.hi-r.lo)
		}
	}

	if v < s.ranges[0].lo {
		return s.MinDB()
	}

	return s.MaxDB()
}

// FromDB converts a dB value to the largest raw value not exceeding it, clamped to the element range.
func (s *DBScale) FromDB(db int64) int64 {
	best, found := int64(0), false

	for _, r := range s.ranges {
		var v int64
		switch {
		case db >= r.maxDB:
			v = r.hi
		case db < r.minDB:
			continue
		case r.maxDB == r.minDB:
			v = r.lo
		default:
			v = r.lo + (db-r.minDB)*(r.hi-r.lo)/(r.maxDB-r.minDB)
		}

		if !found || v > best {
			best, found = v, true
		}
	}

	if !found {
		lowest := s.ranges[0].lo
		for _, r := range s.ranges[1:] {
			lowest = min(lowest, r.lo)
		}

		return lowest
	}

	return best
}
