package service

import (
	"errors"
	"net/url"
	"strings"
)

var (
	// ErrEmptyLookup 查询输入为空
	ErrEmptyLookup = errors.New("patient id or scan url is required")
	// ErrInvalidLookupURL 输入看起来是 URL 但无法解析出标识
	ErrInvalidLookupURL = errors.New("invalid patient url format")
)

// ExtractIdentifier 从扫码/手输内容中取出患者标识
// - 以 "http" 开头：按 URL 解析，取路径最后一段
// - 其他：原样作为标识
func ExtractIdentifier(input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", ErrEmptyLookup
	}
	if !strings.HasPrefix(input, "http") {
		return input, nil
	}

	u, err := url.Parse(input)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", ErrInvalidLookupURL
	}
	parts := strings.Split(u.Path, "/")
	id := parts[len(parts)-1]
	if id == "" {
		return "", ErrInvalidLookupURL
	}
	return id, nil
}

// PatientLink {base}/patient/{id}
func PatientLink(baseURL, id string) string {
	return strings.TrimRight(baseURL, "/") + "/patient/" + url.PathEscape(id)
}

// ShortPatientLink {base}/ps/{id}
func ShortPatientLink(baseURL, id string) string {
	return strings.TrimRight(baseURL, "/") + "/ps/" + url.PathEscape(id)
}
