package admin

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"golang.org/x/time/rate"
)

// Fetcher streams a dataset's remote boundary file into w, returning the
// byte count transferred.
type Fetcher interface {
	Fetch(ctx context.Context, src Source, w io.Writer) (int64, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, src Source, w io.Writer) (int64, error)

func (f FetcherFunc) Fetch(ctx context.Context, src Source, w io.Writer) (int64, error) {
	return f(ctx, src, w)
}

// S3Fetcher downloads from AWS-hosted buckets with the S3 transfer manager.
type S3Fetcher struct {
	client *s3.Client
}

// NewS3Fetcher builds a fetcher from default AWS config. Public datasets
// need no credentials; anonymous access is used when none are configured.
func NewS3Fetcher(ctx context.Context, region string) (*S3Fetcher, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(aws.AnonymousCredentials{}),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &S3Fetcher{client: s3.NewFromConfig(cfg)}, nil
}

// NewS3FetcherFromClient wraps an existing client (tests, custom endpoints).
func NewS3FetcherFromClient(client *s3.Client) *S3Fetcher {
	return &S3Fetcher{client: client}
}

func (f *S3Fetcher) Fetch(ctx context.Context, src Source, w io.Writer) (int64, error) {
	// Concurrency 1 keeps parts in order so a sequential writer suffices.
	dl := manager.NewDownloader(f.client, func(d *manager.Downloader) {
		d.Concurrency = 1
	})
	return dl.Download(ctx, sequentialWriterAt{w: w}, &s3.GetObjectInput{
		Bucket: aws.String(src.Bucket),
		Key:    aws.String(src.Key),
	})
}

// sequentialWriterAt satisfies io.WriterAt for strictly in-order writes. The
// offset is trusted because the downloader runs single-part at concurrency 1.
type sequentialWriterAt struct {
	w io.Writer
}

func (s sequentialWriterAt) WriteAt(p []byte, _ int64) (int, error) {
	return s.w.Write(p)
}

// MinIOFetcher downloads from S3-compatible endpoints such as source.coop.
type MinIOFetcher struct{}

// NewMinIOFetcher creates an anonymous-access fetcher; public reference
// datasets require no credentials.
func NewMinIOFetcher() *MinIOFetcher {
	return &MinIOFetcher{}
}

func (f *MinIOFetcher) Fetch(ctx context.Context, src Source, w io.Writer) (int64, error) {
	client, err := minio.New(src.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4("", "", ""),
		Secure: true,
	})
	if err != nil {
		return 0, fmt.Errorf("minio client for %s: %w", src.Endpoint, err)
	}
	obj, err := client.GetObject(ctx, src.Bucket, src.Key, minio.GetObjectOptions{})
	if err != nil {
		return 0, err
	}
	defer obj.Close()
	return io.Copy(w, obj)
}

// HTTPFetcher downloads from a plain URL.
type HTTPFetcher struct {
	client *http.Client
}

// NewHTTPFetcher wraps client, or http.DefaultClient when nil.
func NewHTTPFetcher(client *http.Client) *HTTPFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPFetcher{client: client}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, src Source, w io.Writer) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return 0, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("download %s: unexpected status %s", src.URL, resp.Status)
	}
	return io.Copy(w, resp.Body)
}

// RateLimited wraps a fetcher so transfers honor a byte-rate limit; nil
// limiter passes through unchanged.
func RateLimited(f Fetcher, limiter *rate.Limiter) Fetcher {
	if limiter == nil {
		return f
	}
	return FetcherFunc(func(ctx context.Context, src Source, w io.Writer) (int64, error) {
		return f.Fetch(ctx, src, &limitedWriter{ctx: ctx, w: w, limiter: limiter})
	})
}

type limitedWriter struct {
	ctx     context.Context
	w       io.Writer
	limiter *rate.Limiter
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	// WaitN caps n at the limiter burst; reserve in chunks.
	written := 0
	for len(p) > 0 {
		n := len(p)
		if burst := lw.limiter.Burst(); n > burst {
			n = burst
		}
		if err := lw.limiter.WaitN(lw.ctx, n); err != nil {
			return written, err
		}
		m, err := lw.w.Write(p[:n])
		written += m
		if err != nil {
			return written, err
		}
		p = p[n:]
	}
	return written, nil
}
