package pvretrieval_test

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/PvGGit/pv-retrieval/pvretrieval"
)

//nolint:testableexamples // cannot validate output without a real cluster
func Example() {
	retrieval := pvretrieval.NewRetrieval()
	retrieval.SourceContext = "old-cluster"
	retrieval.TargetContext = "new-cluster"
	retrieval.Namespace = "apps"
	retrieval.RetrievePVCs = pvretrieval.Both
	retrieval.MappingFile = "mapping.txt"
	retrieval.ReportPath = "report.yaml"
	retrieval.ReportFormat = pvretrieval.YAML
	retrieval.Logger = log.NewEntry(log.StandardLogger())

	result, err := pvretrieval.Run(context.Background(), &retrieval)
	if err != nil {
		log.Fatal(err)
	}

	for _, rec := range result.Records {
		fmt.Println(rec.Status, rec.Source, rec.Target)
	}
}
