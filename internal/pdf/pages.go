package pdf

import (
	"fmt"
	"strconv"
	"strings"
)

// ParsePageRange 解析页码表达式，如 "1,3-5,9"。
// 返回去重且升序的页码列表（1 起始）。spec 为空时返回 nil，表示全部页。
func ParsePageRange(spec string, pageCount int) ([]int, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, nil
	}

	seen := make(map[int]bool)
	var pages []int

	add := func(n int) error {
		if n < 1 || n > pageCount {
			return NewError(ErrBadPageRange,
				fmt.Sprintf("page %d out of range, document has %d pages", n, pageCount), nil)
		}
		if !seen[n] {
			seen[n] = true
			pages = append(pages, n)
		}
		return nil
	}

	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		if lo, hi, ok := strings.Cut(part, "-"); ok {
			start, err := strconv.Atoi(strings.TrimSpace(lo))
			if err != nil {
				return nil, NewError(ErrBadPageRange, fmt.Sprintf("invalid page range %q", part), err)
			}
			end, err := strconv.Atoi(strings.TrimSpace(hi))
			if err != nil {
				return nil, NewError(ErrBadPageRange, fmt.Sprintf("invalid page range %q", part), err)
			}
			if start > end {
				return nil, NewError(ErrBadPageRange, fmt.Sprintf("descending page range %q", part), nil)
			}
			for n := start; n <= end; n++ {
				if err := add(n); err != nil {
					return nil, err
				}
			}
			continue
		}

		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, NewError(ErrBadPageRange, fmt.Sprintf("invalid page number %q", part), err)
		}
		if err := add(n); err != nil {
			return nil, err
		}
	}

	// Input is comma separated and already processed left to right, so the
	// only remaining concern is ordering across parts like "5,1-3".
	for i := 1; i < len(pages); i++ {
		for j := i; j > 0 && pages[j] < pages[j-1]; j-- {
			pages[j], pages[j-1] = pages[j-1], pages[j]
		}
	}
	return pages, nil
}
