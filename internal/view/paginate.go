package view

import "sort"

// DefaultPageSize matches the alerts table default.
const DefaultPageSize = 25

// Ellipsis marks a gap in a page-link sequence.
const Ellipsis = -1

// Page describes one page of a collection. Start and End are slice bounds
// into the filtered rows.
type Page struct {
	Number int
	Size   int
	Total  int
	Pages  int
	Start  int
	End    int
}

// Paginate clamps the requested page into [1, pages] and computes the row
// window. A non-positive size selects DefaultPageSize.
func Paginate(total, page, size int) Page {
	if size <= 0 {
		size = DefaultPageSize
	}
	pages := (total + size - 1) / size
	if pages < 1 {
		pages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > pages {
		page = pages
	}
	start := (page - 1) * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}
	return Page{Number: page, Size: size, Total: total, Pages: pages, Start: start, End: end}
}

// Slice returns the rows of the page. Items must be the same collection the
// Page was computed from.
func Slice[T any](items []T, p Page) []T {
	if p.Start >= len(items) {
		return nil
	}
	end := p.End
	if end > len(items) {
		end = len(items)
	}
	return items[p.Start:end]
}

// PageLinks builds the abbreviated page-link sequence: always page 1, the
// current page and its neighbors, and the last page, with Ellipsis wherever
// consecutive entries differ by more than one.
func PageLinks(page, pages int) []int {
	candidates := []int{1, page - 1, page, page + 1, pages}
	seen := make(map[int]struct{})
	var around []int
	for _, p := range candidates {
		if p < 1 || p > pages {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		around = append(around, p)
	}
	sort.Ints(around)

	var seq []int
	for i, p := range around {
		if i > 0 && p-around[i-1] > 1 {
			seq = append(seq, Ellipsis)
		}
		seq = append(seq, p)
	}
	return seq
}
