package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/gophchat/internal/common"
	sc "github.com/dmitrijs2005/gophchat/internal/server/config"
)

func newSvcForPresign(t *testing.T) *FileService {
	t.Helper()
	cfg := &sc.Config{
		S3Region:       "us-east-1",
		S3RootUser:     "minioadmin",
		S3RootPassword: "minioadmin",
		S3BaseEndpoint: "http://127.0.0.1:9000",
		S3Bucket:       "attachments",
	}
	return NewFileService(cfg)
}

// stubPresign replaces the AWS seams for the duration of the test.
func stubPresign(t *testing.T) (puts *[]*s3.PutObjectInput, gets *[]*s3.GetObjectInput) {
	t.Helper()

	origLoad := loadDefaultAWSConfig
	origNewS3 := newS3ClientFromConfig
	origNewPre := newS3PresignClient
	origPut := presignPutObject
	origGet := presignGetObject
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNewS3
		newS3PresignClient = origNewPre
		presignPutObject = origPut
		presignGetObject = origGet
	})

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, nil
	}
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return &s3.Client{}
	}
	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return &s3.PresignClient{}
	}

	var p []*s3.PutObjectInput
	var g []*s3.GetObjectInput
	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		p = append(p, in)
		return &v4.PresignedHTTPRequest{URL: "https://s3.local/put/" + *in.Key}, nil
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		g = append(g, in)
		return &v4.PresignedHTTPRequest{URL: "https://s3.local/get/" + *in.Key}, nil
	}
	return &p, &g
}

func Test_getPresignClient_SuccessAndError(t *testing.T) {
	svc := newSvcForPresign(t)

	origLoad := loadDefaultAWSConfig
	origNewS3 := newS3ClientFromConfig
	origNewPre := newS3PresignClient
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNewS3
		newS3PresignClient = origNewPre
	})

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		if len(optFns) == 0 {
			t.Fatalf("expected config options")
		}
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			if err := fn(&lo); err != nil {
				t.Fatalf("load options fn error: %v", err)
			}
		}
		if lo.Region != "us-east-1" {
			t.Fatalf("region not applied: %q", lo.Region)
		}
		return aws.Config{}, nil
	}

	var capturedBaseEndpoint string
	var pathStyle bool
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		var opts s3.Options
		for _, fn := range optFns {
			fn(&opts)
		}
		if opts.BaseEndpoint == nil {
			t.Fatalf("BaseEndpoint not set")
		}
		capturedBaseEndpoint = *opts.BaseEndpoint
		pathStyle = opts.UsePathStyle
		return &s3.Client{}
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		if c == nil {
			t.Fatalf("nil client passed to presign")
		}
		return &s3.PresignClient{}
	}

	pc, err := svc.getPresignClient(context.Background())
	if err != nil {
		t.Fatalf("getPresignClient err: %v", err)
	}
	if pc == nil {
		t.Fatalf("nil presign client")
	}
	if capturedBaseEndpoint != "http://127.0.0.1:9000" || !pathStyle {
		t.Fatalf("client options not applied: %q %v", capturedBaseEndpoint, pathStyle)
	}

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("load-fail")
	}

	pc, err = svc.getPresignClient(context.Background())
	if err == nil || err.Error() != "load-fail" {
		t.Fatalf("expected load-fail, got %v (pc=%v)", err, pc)
	}
}

func TestPresignUpload(t *testing.T) {
	svc := newSvcForPresign(t)
	puts, _ := stubPresign(t)

	up, err := svc.PresignUpload(context.Background(), "u-1", "image/png", 1024)
	if err != nil {
		t.Fatalf("PresignUpload err: %v", err)
	}
	if !strings.HasPrefix(up.Key, "users/u-1/") || !strings.HasSuffix(up.Key, ".png") {
		t.Fatalf("unexpected key: %q", up.Key)
	}
	if up.URL != "https://s3.local/put/"+up.Key {
		t.Fatalf("unexpected url: %q", up.URL)
	}
	if len(*puts) != 1 || *(*puts)[0].Bucket != "attachments" || *(*puts)[0].ContentType != "image/png" {
		t.Fatalf("unexpected put input: %+v", *puts)
	}
}

func TestPresignUpload_Validation(t *testing.T) {
	svc := newSvcForPresign(t)
	puts, _ := stubPresign(t)

	cases := []struct {
		contentType string
		size        int64
	}{
		{"application/pdf", 10},
		{"image/gif", 10},
		{"image/jpeg", 0},
		{"image/jpeg", MaxAttachmentSize + 1},
	}
	for _, c := range cases {
		_, err := svc.PresignUpload(context.Background(), "u-1", c.contentType, c.size)
		if !errors.Is(err, common.ErrorValidation) {
			t.Fatalf("%s/%d: want ErrorValidation, got %v", c.contentType, c.size, err)
		}
	}
	if len(*puts) != 0 {
		t.Fatalf("presign should not be called for invalid input")
	}

	if _, err := svc.PresignUpload(context.Background(), "u-1", "IMAGE/JPEG", MaxAttachmentSize); err != nil {
		t.Fatalf("upper-case jpeg at the limit should pass: %v", err)
	}
}

func TestPresignDownload(t *testing.T) {
	svc := newSvcForPresign(t)
	_, gets := stubPresign(t)

	url, err := svc.PresignDownload(context.Background(), "u-1", "users/u-1/2025/03/01/x.png")
	if err != nil || url != "https://s3.local/get/users/u-1/2025/03/01/x.png" {
		t.Fatalf("unexpected result: %q, %v", url, err)
	}

	_, err = svc.PresignDownload(context.Background(), "u-1", "users/u-2/2025/03/01/x.png")
	if !errors.Is(err, common.ErrorForbidden) {
		t.Fatalf("want ErrorForbidden, got %v", err)
	}
	if len(*gets) != 1 {
		t.Fatalf("unexpected presign calls: %d", len(*gets))
	}
}

func TestPresign_Errors(t *testing.T) {
	svc := newSvcForPresign(t)
	stubPresign(t)

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return nil, errors.New("put-fail")
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return nil, errors.New("get-fail")
	}

	if _, err := svc.PresignUpload(context.Background(), "u", "image/png", 1); err == nil || err.Error() != "put-fail" {
		t.Fatalf("expected put-fail, got %v", err)
	}
	if _, err := svc.PresignDownload(context.Background(), "u", "users/u/k"); err == nil || err.Error() != "get-fail" {
		t.Fatalf("expected get-fail, got %v", err)
	}
}

func TestStorageKey(t *testing.T) {
	k := StorageKey("u-9", ".jpg", time.Date(2025, 3, 7, 0, 0, 0, 0, time.UTC))
	if !strings.HasPrefix(k, "users/u-9/2025/03/07/") || !strings.HasSuffix(k, ".jpg") {
		t.Fatalf("unexpected key: %q", k)
	}
}
