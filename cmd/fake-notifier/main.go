// fake-notifier publishes synthetic storage-event notifications to the
// notifications topic, for exercising the worker against a local stack.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/url"

	"github.com/nsqio/go-nsq"

	"github.com/samops/filerelay/internal/config"
	"github.com/samops/filerelay/internal/logging"
)

var sampleKeys = []string{
	"samprod-fileingestion/P23-380/SAM_P23-380_TEST_TV_BLINDED_UC lab_20231030.csv",
	"samprod-fileingestion/Mock Study 34/SAM_Mock Study 34_TEST_RNKIT_UNBLINDED_EPC_2023APR18.txt",
	"samprod-fileingestion/Mock Study 33/my_report.pdf",
	"miscellaneous/another_report.docx",
}

type bucketDoc struct {
	Name string `json:"name"`
}

type objectDoc struct {
	Key string `json:"key"`
}

type s3Doc struct {
	Bucket bucketDoc `json:"bucket"`
	Object objectDoc `json:"object"`
}

type record struct {
	S3 s3Doc `json:"s3"`
}

type document struct {
	Records []record `json:"Records"`
}

func main() {
	cfg := config.FromEnv()
	logger := logging.New("filerelay-fake-notifier")

	count := flag.Int("count", len(sampleKeys), "number of notifications to publish")
	bucket := flag.String("bucket", "samprod-staging", "source bucket name")
	key := flag.String("key", "", "publish a single notification for this object key instead of the samples")
	wrapped := flag.Bool("wrapped", true, "publish the Records-array shape; false publishes bare records")
	flag.Parse()

	producer, err := nsq.NewProducer(cfg.NSQ.NsqdTCPAddr, nsq.NewConfig())
	if err != nil {
		logger.Plain().WithError(err).Fatal("nsq producer creation failed")
	}
	defer producer.Stop()

	keys := sampleKeys
	if *key != "" {
		keys = []string{*key}
		*count = 1
	}

	for i := 0; i < *count; i++ {
		k := keys[i%len(keys)]
		rec := record{S3: s3Doc{
			Bucket: bucketDoc{Name: *bucket},
			// Keys arrive percent/plus-encoded on the wire.
			Object: objectDoc{Key: url.QueryEscape(k)},
		}}

		var body []byte
		if *wrapped {
			body, err = json.Marshal(document{Records: []record{rec}})
		} else {
			body, err = json.Marshal(rec)
		}
		if err != nil {
			logger.Plain().WithError(err).Fatal("marshal notification failed")
		}

		if err := producer.Publish(cfg.NSQ.NotificationsTopic, body); err != nil {
			logger.Plain().WithKey(k).WithError(err).Fatal("publish failed")
		}
		logger.Plain().WithKey(k).Infof("published notification %d/%d", i+1, *count)
	}

	fmt.Printf("published %d notifications to %s\n", *count, cfg.NSQ.NotificationsTopic)
}
