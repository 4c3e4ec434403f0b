package vectorstore

import "cloud.google.com/go/firestore"

type BulkResult = bulkResult

func BulkJobsError[J bulkResult](jobs []J, userID string) error {
	return bulkJobsError(jobs, userID)
}

var _ BulkResult = (*firestore.BulkWriterJob)(nil)
