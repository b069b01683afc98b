package storage

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"
)

// MockUploads records SaveUpload calls with the uploaded content as a string.
type MockUploads struct {
	mock.Mock
}

func (m *MockUploads) SaveUpload(_ context.Context, formID int64, filename string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}

	args := m.Called(formID, filename, string(data))
	return args.String(0), args.Error(1)
}
