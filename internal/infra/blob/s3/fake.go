package s3

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const fakeBucket = "herdcore-fake"

// NewFake returns a Store whose HTTP client talks to an in-process bucket.
// It understands the object calls Store makes and nothing else.
func NewFake() *Store {
	transport := &fakeBucketTransport{objects: make(map[string]fakeObject)}
	awsCfg := aws.Config{
		Region:      "us-east-1",
		Credentials: credentials.NewStaticCredentialsProvider("AKIDFAKE", "SECRETFAKE", ""),
		HTTPClient:  &http.Client{Transport: transport},
	}
	return newWithConfig(awsCfg, Config{Bucket: fakeBucket, Endpoint: "https://fake.s3.local", PathStyle: true}, func(o *s3.Options) {
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
	})
}

type fakeObject struct {
	body        []byte
	contentType string
	metadata    http.Header
	modified    time.Time
}

type fakeBucketTransport struct {
	mu      sync.Mutex
	objects map[string]fakeObject
}

func (f *fakeBucketTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := strings.TrimPrefix(req.URL.Path, "/"+fakeBucket)
	key := strings.TrimPrefix(path, "/")
	if req.Method == http.MethodGet && req.URL.Query().Get("list-type") == "2" {
		return f.list(req.URL.Query().Get("prefix")), nil
	}
	switch req.Method {
	case http.MethodPut:
		body, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		meta := http.Header{}
		for name, values := range req.Header {
			if strings.HasPrefix(strings.ToLower(name), "x-amz-meta-") {
				meta[name] = values
			}
		}
		f.objects[key] = fakeObject{body: body, contentType: req.Header.Get("Content-Type"), metadata: meta, modified: time.Now().UTC()}
		return response(req, http.StatusOK, nil, http.Header{"Etag": {etag(body)}}), nil
	case http.MethodHead, http.MethodGet:
		obj, ok := f.objects[key]
		if !ok {
			if req.Method == http.MethodHead {
				return response(req, http.StatusNotFound, nil, http.Header{}), nil
			}
			return response(req, http.StatusNotFound, []byte(`<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>missing</Message></Error>`), http.Header{"Content-Type": {"application/xml"}}), nil
		}
		header := http.Header{
			"Content-Length": {strconv.Itoa(len(obj.body))},
			"Content-Type":   {obj.contentType},
			"Etag":           {etag(obj.body)},
			"Last-Modified":  {obj.modified.Format(http.TimeFormat)},
		}
		for name, values := range obj.metadata {
			header[name] = values
		}
		var body []byte
		if req.Method == http.MethodGet {
			body = obj.body
		}
		return response(req, http.StatusOK, body, header), nil
	case http.MethodDelete:
		delete(f.objects, key)
		return response(req, http.StatusNoContent, nil, http.Header{}), nil
	}
	return response(req, http.StatusNotImplemented, nil, http.Header{}), nil
}

func (f *fakeBucketTransport) list(prefix string) *http.Response {
	keys := make([]string, 0, len(f.objects))
	for k := range f.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?><ListBucketResult><Name>` + fakeBucket + `</Name><IsTruncated>false</IsTruncated>`)
	for _, k := range keys {
		obj := f.objects[k]
		fmt.Fprintf(&b, "<Contents><Key>%s</Key><Size>%d</Size><ETag>%s</ETag><LastModified>%s</LastModified></Contents>",
			k, len(obj.body), etag(obj.body), obj.modified.Format(time.RFC3339))
	}
	b.WriteString("</ListBucketResult>")
	return response(nil, http.StatusOK, []byte(b.String()), http.Header{"Content-Type": {"application/xml"}})
}

func response(req *http.Request, status int, body []byte, header http.Header) *http.Response {
	return &http.Response{
		StatusCode:    status,
		Status:        http.StatusText(status),
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
		Request:       req,
	}
}

func etag(body []byte) string {
	return fmt.Sprintf(`"%x"`, sha256.Sum256(body))
}
