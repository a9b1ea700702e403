package api

import (
	"errors"
	"regexp"
	"strconv"
)

var rangePattern = regexp.MustCompile(`^bytes=(\d+)-(\d*)$`)

var errRangeNotSatisfiable = errors.New("requested range not satisfiable")

// parseByteRange interprets a Range header against a payload of total bytes.
// A missing or syntactically malformed header yields ok=false (serve the
// full payload). A well-formed range outside [0, total-1], or with start
// past end, yields errRangeNotSatisfiable. An omitted end defaults to the
// last byte.
func parseByteRange(header string, total int64) (start, end int64, ok bool, err error) {
	if header == "" {
		return 0, 0, false, nil
	}

	m := rangePattern.FindStringSubmatch(header)
	if m == nil {
		return 0, 0, false, nil
	}

	start, err = strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, 0, false, nil
	}

	end = total - 1
	if m[2] != "" {
		end, err = strconv.ParseInt(m[2], 10, 64)
		if err != nil {
			return 0, 0, false, nil
		}
	}

	if start >= total || end >= total || start > end {
		return 0, 0, false, errRangeNotSatisfiable
	}
	return start, end, true, nil
}
