// internal/service/owned.go
package service

import (
	"context"

	errordefs "github.com/vidshare/vidshare-api-go/internal/errors"
	"github.com/vidshare/vidshare-api-go/internal/ownership"
)

// owned is the find, 404, authorize, 401 sequence every mutation of an
// owned resource starts with.
type owned[T ownership.Owned] struct {
	load     func(ctx context.Context, id string) (*T, error)
	notFound string // 404 message
}

// authorize loads id and checks that requester owns it.
// denied is the 401 message for this particular operation.
func (o owned[T]) authorize(ctx context.Context, id, requester, denied string) (*T, error) {
	res, err := o.load(ctx, id)
	if err != nil {
		return nil, storeErr(err, o.notFound)
	}
	if err := ownership.Check(*res, requester); err != nil {
		return nil, errordefs.Wrap(errordefs.VS_NOT_OWNER, denied, err)
	}
	return res, nil
}
