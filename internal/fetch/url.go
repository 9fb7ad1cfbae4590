package fetch

// BuildURL assembles the request URL from baseURL, path and queryParams using EncodeQuery.
//
// The parts are concatenated literally: no slashes are added or collapsed.
// With bypassBaseURL set, baseURL is ignored and path is used as it is.
// No "?" is appended when there are no query parameters left after filtering.
func BuildURL(baseURL, path string, queryParams any, bypassBaseURL bool) (string, error) {
	return buildURL(EncodeQuery, baseURL, path, queryParams, bypassBaseURL)
}

func buildURL(encode QueryEncoder, baseURL, path string, queryParams any, bypassBaseURL bool) (string, error) {
	queryString, err := buildQueryString(encode, queryParams)
	if err != nil {
		return "", err
	}

	if bypassBaseURL {
		return path + queryString, nil
	}

	return baseURL + path + queryString, nil
}

func buildQueryString(encode QueryEncoder, queryParams any) (string, error) {
	if queryParams == nil {
		return "", nil
	}

	encoded, err := encode(queryParams)
	if err != nil {
		return "", err
	}

	if encoded == "" {
		return "", nil
	}

	return "?" + encoded, nil
}
