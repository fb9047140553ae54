package s3

import (
	"context"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/sirupsen/logrus"
)

// fakeS3 records PutObject calls. Other S3API methods are not used.
type fakeS3 struct {
	s3iface.S3API
	objects map[string]string
	buckets []string
	failKey string
}

func (f *fakeS3) PutObjectWithContext(ctx aws.Context, in *s3.PutObjectInput, opts ...request.Option) (*s3.PutObjectOutput, error) {
	if aws.StringValue(in.Key) == f.failKey {
		return nil, fmt.Errorf("access denied")
	}
	b, err := ioutil.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.StringValue(in.Key)] = string(b)
	f.buckets = append(f.buckets, aws.StringValue(in.Bucket))
	return &s3.PutObjectOutput{}, nil
}

func TestArchive(t *testing.T) {
	log := logrus.New()
	log.SetLevel(logrus.DebugLevel)
	dir, err := ioutil.TempDir("", "archive-")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	f1 := filepath.Join(dir, "EMLI_3_WKLY_TITLE.csv")
	if err = ioutil.WriteFile(f1, []byte("TITLE_NMBR\nT1\n"), 0644); err != nil {
		t.Fatal(err)
	}

	api := &fakeS3{objects: make(map[string]string)}
	a := &Archiver{Log: log, Client: NewBasicClientWithAPI("bucket", "/pin/etl/", api)}
	keys, err := a.Archive(context.Background(), "EMLI_UPDATE_20240417", "run1", []string{f1}, map[string]int{"inserted": 3})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(keys, ",") != "EMLI_UPDATE_20240417/run1/EMLI_3_WKLY_TITLE.csv,EMLI_UPDATE_20240417/run1/manifest.json" {
		t.Fatalf("unexpected keys %v", keys)
	}
	if api.objects["pin/etl/EMLI_UPDATE_20240417/run1/EMLI_3_WKLY_TITLE.csv"] != "TITLE_NMBR\nT1\n" {
		t.Fatalf("unexpected objects %v", api.objects)
	}
	if !strings.Contains(api.objects["pin/etl/EMLI_UPDATE_20240417/run1/manifest.json"], `"inserted": 3`) {
		t.Fatalf("unexpected manifest %v", api.objects)
	}
	if api.buckets[0] != "bucket" {
		t.Fatalf("unexpected bucket %v", api.buckets)
	}
}

func TestArchiveStopsOnError(t *testing.T) {
	log := logrus.New()
	dir, err := ioutil.TempDir("", "archive-")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	f1 := filepath.Join(dir, "a.csv")
	f2 := filepath.Join(dir, "b.csv")
	for _, f := range []string{f1, f2} {
		if err = ioutil.WriteFile(f, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	api := &fakeS3{objects: make(map[string]string), failKey: "f/r/a.csv"}
	a := &Archiver{Log: log, Client: NewBasicClientWithAPI("bucket", "", api)}
	keys, err := a.Archive(context.Background(), "f", "r", []string{f1, f2}, nil)
	if err == nil {
		t.Fatal("expected an error")
	}
	if len(keys) != 0 || len(api.objects) != 0 {
		t.Fatalf("expected nothing archived, got %v %v", keys, api.objects)
	}
}

func TestParseDSN(t *testing.T) {
	b, err := ParseDSN("s3://my-bucket/pin/etl/", "ca-central-1")
	if err != nil {
		t.Fatal(err)
	}
	if b.Name != "my-bucket" || b.Prefix != "pin/etl" || b.Region != "ca-central-1" {
		t.Fatalf("unexpected bucket %+v", b)
	}
	if b, err = ParseDSN("my-bucket", "ca-central-1"); err != nil || b.Name != "my-bucket" || b.Prefix != "" {
		t.Fatalf("unexpected result %+v %v", b, err)
	}
	if _, err = ParseDSN("gs://my-bucket/x", "r"); err == nil {
		t.Fatal("expected a scheme error")
	}
	if _, err = ParseDSN("s3://my-bucket/x", ""); err == nil {
		t.Fatal("expected a region error")
	}
}
