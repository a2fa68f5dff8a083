package survey

// BuildCountryCategoryMap maps every country in counts to itself when it
// occurs at least cutoff times and to OtherCountry otherwise. The key set of
// the result equals the key set of counts. A cutoff of 0 keeps every country.
func BuildCountryCategoryMap(counts map[string]int, cutoff int) map[string]string {
	m := make(map[string]string, len(counts))
	for country, n := range counts {
		if n >= cutoff {
			m[country] = country
		} else {
			m[country] = OtherCountry
		}
	}
	return m
}

// CountCountries tallies country occurrences over records.
func CountCountries(records []Record) map[string]int {
	counts := make(map[string]int)
	for _, r := range records {
		counts[r.Country]++
	}
	return counts
}
