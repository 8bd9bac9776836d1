package repository

import (
	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"studyhub/pkg/errors"
)

// mapFirestoreError turns a Firestore/gRPC failure into an AppError.
// AppErrors raised inside transactions pass through unchanged.
func mapFirestoreError(err error, resource, action string) error {
	if err == nil {
		return nil
	}
	if appErr, ok := errors.AsAppError(err); ok {
		return appErr
	}

	switch status.Code(err) {
	case codes.NotFound:
		return errors.NotFound(resource, err)
	case codes.Aborted:
		return errors.TransactionConflict("Failed to "+action+": concurrent update", err)
	case codes.PermissionDenied:
		return errors.Forbidden("Not allowed to "+action, err)
	case codes.InvalidArgument:
		return errors.Validation("Failed to "+action, err)
	}
	return errors.BackendUnavailable("Failed to "+action, err)
}

// collect drains iter, decoding each document and stamping its id.
func collect[T any](iter *firestore.DocumentIterator, setID func(*T, string)) ([]*T, error) {
	defer iter.Stop()

	var out []*T
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		var v T
		if err := doc.DataTo(&v); err != nil {
			return nil, err
		}
		setID(&v, doc.Ref.ID)
		out = append(out, &v)
	}
	return out, nil
}

// isCanceled reports whether a snapshot listener stopped because its
// context ended.
func isCanceled(err error) bool {
	c := status.Code(err)
	return c == codes.Canceled || c == codes.DeadlineExceeded
}
