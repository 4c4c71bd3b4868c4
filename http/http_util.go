package http

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

// Resp JSON Http响应
type Resp struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Msg     string      `json:"msg,omitempty"`
}

var (
	errNoparam = fmt.Errorf("missing param")
	json       = jsoniter.ConfigCompatibleWithStandardLibrary
)

// GetParameter 取得由name指定的参数值
func GetParameter(r url.Values, name string) string {
	return strings.TrimSpace(r.Get(name))
}

// GetInt64Parameter 取得由name指定的64位整数参数值
func GetInt64Parameter(r url.Values, name string) (int64, error) {
	value := GetParameter(r, name)
	if value == "" {
		return 0, errNoparam
	}
	return strconv.ParseInt(value, 10, 64)
}

// IsMissingParam reports whether err is returned for an absent parameter
func IsMissingParam(err error) bool {
	return err == errNoparam
}

// RenderJSON 渲染JSON
func RenderJSON(w http.ResponseWriter, status int, jsonData interface{}) {
	data, err := json.Marshal(jsonData)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// RenderResp 渲染Resp
func RenderResp(w http.ResponseWriter, status int, data interface{}, msg string) {
	RenderJSON(w, status, &Resp{Success: status < http.StatusBadRequest, Data: data, Msg: msg})
}

// RenderText 渲染Text
func RenderText(w http.ResponseWriter, status int, text string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(text))
}

// DecodeJSON 解析请求体
func DecodeJSON(r io.Reader, dest interface{}) error {
	return json.NewDecoder(r).Decode(dest)
}

// PostURL 请求URL,返回状态码和响应体
func PostURL(client *http.Client, url string, contentType string, requestBody io.Reader) (int, []byte, error) {
	req, err := http.NewRequest(http.MethodPost, url, requestBody)
	if err != nil {
		return 0, nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, body, nil
}
