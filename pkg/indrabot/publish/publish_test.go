package publish

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"

	"github.com/cognicore/indrabot/pkg/indrabot/internalerr"
	"github.com/cognicore/indrabot/pkg/indrabot/store/memstore"
)

type fakeUploader struct {
	inputs []*s3manager.UploadInput
	bodies []string
	err    error
}

func (f *fakeUploader) Upload(in *s3manager.UploadInput, opts ...func(*s3manager.Uploader)) (*s3manager.UploadOutput, error) {
	return f.UploadWithContext(context.Background(), in, opts...)
}

func (f *fakeUploader) UploadWithContext(ctx aws.Context, in *s3manager.UploadInput, opts ...func(*s3manager.Uploader)) (*s3manager.UploadOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, _ := io.ReadAll(in.Body)
	f.inputs = append(f.inputs, in)
	f.bodies = append(f.bodies, string(body))
	return &s3manager.UploadOutput{}, nil
}

func TestIDsMonotonic(t *testing.T) {
	ids := NewIDs()
	prev := ids.New()
	for i := 0; i < 100; i++ {
		next := ids.New()
		if next <= prev {
			t.Fatalf("ids not increasing: %s then %s", prev, next)
		}
		prev = next
	}
	if len(prev) != 26 {
		t.Errorf("unexpected ULID length %d", len(prev))
	}
}

func TestS3Publish(t *testing.T) {
	up := &fakeUploader{}
	p, err := NewS3Publisher("indrabot-results", up, nil)
	if err != nil {
		t.Fatal(err)
	}

	url, err := p.Publish(context.Background(), Page{HTML: []byte("<html>hi</html>")})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(up.inputs) != 1 {
		t.Fatalf("got %d uploads, want 1", len(up.inputs))
	}
	in := up.inputs[0]
	key := aws.StringValue(in.Key)
	if !strings.HasSuffix(key, ".html") || aws.StringValue(in.Bucket) != "indrabot-results" {
		t.Errorf("unexpected upload target %s/%s", aws.StringValue(in.Bucket), key)
	}
	if aws.StringValue(in.ContentType) != "text/html" {
		t.Errorf("content type = %q", aws.StringValue(in.ContentType))
	}
	if up.bodies[0] != "<html>hi</html>" {
		t.Errorf("body = %q", up.bodies[0])
	}
	if url != "https://s3.amazonaws.com/indrabot-results/"+key {
		t.Errorf("url = %q", url)
	}
}

func TestS3PublishCustomEndpoint(t *testing.T) {
	tests := []struct {
		endpoint string
		want     string
	}{
		{"http://localhost:9000/", "http://localhost:9000/results/"},
		{"minio.internal:9000", "https://minio.internal:9000/results/"},
	}
	for _, tt := range tests {
		t.Run(tt.endpoint, func(t *testing.T) {
			p, err := NewS3PublisherFromConfig(S3Config{
				Bucket:          "results",
				Region:          "us-east-1",
				Endpoint:        tt.endpoint,
				AccessKeyID:     "key",
				SecretAccessKey: "secret",
			}, nil)
			if err != nil {
				t.Fatalf("NewS3PublisherFromConfig: %v", err)
			}
			up := &fakeUploader{}
			p.uploader = up

			url, err := p.Publish(context.Background(), Page{HTML: []byte("<p>x</p>")})
			if err != nil {
				t.Fatalf("Publish: %v", err)
			}
			key := aws.StringValue(up.inputs[0].Key)
			if url != tt.want+key {
				t.Errorf("url = %q, want %q", url, tt.want+key)
			}
		})
	}
}

func TestS3PublishError(t *testing.T) {
	boom := errors.New("access denied")
	p, _ := NewS3Publisher("b", &fakeUploader{err: boom}, nil)
	if _, err := p.Publish(context.Background(), Page{}); !errors.Is(err, boom) {
		t.Fatalf("expected upload error, got %v", err)
	}
}

func TestS3PublisherNeedsBucket(t *testing.T) {
	if _, err := NewS3Publisher("", &fakeUploader{}, nil); !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestStorePublish(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	p, err := NewStorePublisher(st, "http://localhost:8080/")
	if err != nil {
		t.Fatal(err)
	}

	url, err := p.Publish(ctx, Page{Question: "what binds BRAF", Statements: 2, HTML: []byte("<p>x</p>")})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	const prefix = "http://localhost:8080/results/"
	if !strings.HasPrefix(url, prefix) {
		t.Fatalf("url = %q", url)
	}

	page, err := st.GetResult(ctx, strings.TrimPrefix(url, prefix))
	if err != nil {
		t.Fatalf("GetResult: %v", err)
	}
	if page.Question != "what binds BRAF" || page.Statements != 2 || string(page.Body) != "<p>x</p>" {
		t.Errorf("unexpected stored page %+v", page)
	}

	if _, err := NewStorePublisher(st, ""); !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}
