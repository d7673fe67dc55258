// Package domain models US Census county statistics and the artifacts built
// from them.
//
// # Data Source
//
// County figures come from the Census Bureau data API
// (https://api.census.gov/data). Each registered variable names one or two
// request templates; a template is a full query URL with three placeholders:
//
//	{base}  API root, e.g. https://api.census.gov/data
//	{fips}  2-digit state FIPS code, e.g. "06" for California
//	{key}   API credential (query-escaped)
//
// Responses are JSON arrays of string arrays. Row 0 is the header and every
// following row is aligned to it:
//
//	[["NAME","P1_001N","state","county"],
//	 ["Los Angeles County, California","10014009","06","037"]]
//
// # Normalization
//
// A response is first labeled: the template's column map renames raw Census
// columns (P1_001N, P001001) to canonical ones (value, old, new). Then:
//
//	single:          value is parsed as a number.
//	percent_change:  the two periods are inner-joined on (NAME, state, county)
//	                 and value = (new - old) / new * 100. A zero recent-period
//	                 count fails with ErrDivisionByZero.
//
// Every record gets the 5-digit composite FIPS (state code padded to 2,
// county code padded to 3) and a county display name: the text of NAME before
// its first comma, title-cased.
//
// # Artifact Names
//
// Rendered maps are stored under a name that encodes their identity:
//
//	state-<StateName>_var-<VariableKey>_timestamp-<MM-DD-YYYY>.html
//
// The date is the request's US/Eastern calendar day. Variable keys never
// contain '_' or '-' (enforced by the registry) and no state name does, so
// the name can be decoded by splitting on '_' and then on the first '-'.
package domain
