// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package weaviate implements vectorindex.Index against a live Weaviate
// instance: class schema, nearVector search scoped by a session_id filter,
// and _additional.id resolution for delete, mirroring the CodeMemory store
// this backend is grounded on.
package weaviate

import (
	"context"
	"errors"
	"fmt"
	"time"

	weaviateclient "github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"github.com/ctxmemory/engine/internal/apperrors"
	"github.com/ctxmemory/engine/internal/vectorindex"
)

// ClassName is the Weaviate class storing vector-index entries.
const ClassName = "CtxMemoryVector"

// Schema returns the Weaviate class definition for ClassName. Vectors are
// supplied by the caller (bring-your-own-vector), so the class uses the
// "none" vectorizer and only carries metadata as filterable properties.
func Schema() *models.Class {
	indexFilterable := true
	return &models.Class{
		Class:       ClassName,
		Description: "Context memory engine vector index entries",
		Vectorizer:  "none",
		Properties: []*models.Property{
			{Name: "vectorId", DataType: []string{"text"}, IndexFilterable: &indexFilterable, Tokenization: "field"},
			{Name: "sessionId", DataType: []string{"text"}, IndexFilterable: &indexFilterable, Tokenization: "field"},
			{Name: "turnId", DataType: []string{"text"}, IndexFilterable: &indexFilterable, Tokenization: "field"},
			{Name: "turnNumber", DataType: []string{"int"}},
			{Name: "timestamp", DataType: []string{"date"}},
		},
	}
}

// EnsureSchema creates ClassName if it does not already exist.
func EnsureSchema(ctx context.Context, client *weaviateclient.Client) error {
	_, err := client.Schema().ClassGetter().WithClassName(ClassName).Do(ctx)
	if err == nil {
		return nil
	}
	if err := client.Schema().ClassCreator().WithClass(Schema()).Do(ctx); err != nil {
		return apperrors.Wrap(apperrors.ErrVectorIndex, "create weaviate schema", err)
	}
	return nil
}

// Index implements vectorindex.Index against Weaviate.
type Index struct {
	client *weaviateclient.Client
}

// New wraps an existing, schema-initialized Weaviate client.
func New(client *weaviateclient.Client) *Index {
	return &Index{client: client}
}

var _ vectorindex.Index = (*Index)(nil)

func sessionFilter(sessionID string) *filters.WhereBuilder {
	return filters.Where().
		WithPath([]string{"sessionId"}).
		WithOperator(filters.Equal).
		WithValueString(sessionID)
}

func idFilter(vectorID string) *filters.WhereBuilder {
	return filters.Where().
		WithPath([]string{"vectorId"}).
		WithOperator(filters.Equal).
		WithValueString(vectorID)
}

// Add creates one Weaviate object carrying vector and meta.
func (i *Index) Add(ctx context.Context, id string, vector []float32, meta vectorindex.Metadata) error {
	_, err := i.client.Data().Creator().
		WithClassName(ClassName).
		WithVector(vector).
		WithProperties(map[string]interface{}{
			"vectorId":   id,
			"sessionId":  meta.SessionID,
			"turnId":     meta.TurnID,
			"turnNumber": meta.TurnNumber,
			"timestamp":  meta.Timestamp.UTC().Format(time.RFC3339),
		}).
		Do(ctx)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrVectorIndex, "weaviate add", err)
	}
	return nil
}

// Search runs a nearVector query filtered by sessionId, mirroring C4's
// session-filter-before-score requirement via Weaviate's own pre-filtering.
func (i *Index) Search(ctx context.Context, query []float32, sessionID string, k int) ([]vectorindex.Result, error) {
	nearVector := i.client.GraphQL().NearVectorArgBuilder().WithVector(query)

	fields := []graphql.Field{
		{Name: "vectorId"},
		{Name: "sessionId"},
		{Name: "turnId"},
		{Name: "turnNumber"},
		{Name: "timestamp"},
		{Name: "_additional", Fields: []graphql.Field{{Name: "id"}, {Name: "distance"}}},
	}

	limit := k
	if limit <= 0 {
		limit = 10
	}

	result, err := i.client.GraphQL().Get().
		WithClassName(ClassName).
		WithFields(fields...).
		WithNearVector(nearVector).
		WithWhere(sessionFilter(sessionID)).
		WithLimit(limit).
		Do(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrVectorIndex, "weaviate search", err)
	}
	if len(result.Errors) > 0 {
		return nil, apperrors.Wrap(apperrors.ErrVectorIndex, "weaviate search", fmt.Errorf(result.Errors[0].Message))
	}

	data, _ := result.Data["Get"].(map[string]interface{})
	objects, _ := data[ClassName].([]interface{})

	results := make([]vectorindex.Result, 0, len(objects))
	for _, raw := range objects {
		obj, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		vectorID, _ := obj["vectorId"].(string)
		turnID, _ := obj["turnId"].(string)
		additional, _ := obj["_additional"].(map[string]interface{})
		distance, _ := additional["distance"].(float64)

		var turnNumber int
		if tn, ok := obj["turnNumber"].(float64); ok {
			turnNumber = int(tn)
		}

		results = append(results, vectorindex.Result{
			ID:    vectorID,
			Score: 1 - distance,
			Metadata: vectorindex.Metadata{
				SessionID: sessionID,
				TurnID:    turnID,
				TurnNumber: turnNumber,
			},
		})
	}
	return results, nil
}

// weaviateUUID resolves the internal Weaviate object id for a vectorId.
func (i *Index) weaviateUUID(ctx context.Context, id string) (string, error) {
	result, err := i.client.GraphQL().Get().
		WithClassName(ClassName).
		WithFields(graphql.Field{Name: "_additional { id }"}, graphql.Field{Name: "vectorId"}).
		WithWhere(idFilter(id)).
		WithLimit(1).
		Do(ctx)
	if err != nil {
		return "", apperrors.Wrap(apperrors.ErrVectorIndex, "weaviate resolve id", err)
	}
	data, _ := result.Data["Get"].(map[string]interface{})
	objects, _ := data[ClassName].([]interface{})
	if len(objects) == 0 {
		return "", apperrors.NewNotFound("vector", id)
	}
	obj, _ := objects[0].(map[string]interface{})
	additional, _ := obj["_additional"].(map[string]interface{})
	uuid, ok := additional["id"].(string)
	if !ok {
		return "", apperrors.Wrap(apperrors.ErrVectorIndex, "weaviate resolve id", fmt.Errorf("missing _additional.id"))
	}
	return uuid, nil
}

// Delete removes the object carrying vectorId=id, if any.
func (i *Index) Delete(ctx context.Context, id string) error {
	uuid, err := i.weaviateUUID(ctx, id)
	if err != nil {
		if apperrorsIsNotFound(err) {
			return nil
		}
		return err
	}
	if err := i.client.Data().Deleter().WithClassName(ClassName).WithID(uuid).Do(ctx); err != nil {
		return apperrors.Wrap(apperrors.ErrVectorIndex, "weaviate delete", err)
	}
	return nil
}

func apperrorsIsNotFound(err error) bool {
	var nf *apperrors.NotFoundError
	return errors.As(err, &nf)
}

// Count runs an Aggregate query filtered by sessionId.
func (i *Index) Count(ctx context.Context, sessionID string) (int, error) {
	result, err := i.client.GraphQL().Aggregate().
		WithClassName(ClassName).
		WithWhere(sessionFilter(sessionID)).
		WithFields(graphql.Field{Name: "meta { count }"}).
		Do(ctx)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrVectorIndex, "weaviate count", err)
	}
	data, _ := result.Data["Aggregate"].(map[string]interface{})
	objs, _ := data[ClassName].([]interface{})
	if len(objs) == 0 {
		return 0, nil
	}
	obj, _ := objs[0].(map[string]interface{})
	meta, _ := obj["meta"].(map[string]interface{})
	count, _ := meta["count"].(float64)
	return int(count), nil
}

// Exists reports whether a vectorId is currently stored.
func (i *Index) Exists(ctx context.Context, id string) (bool, error) {
	_, err := i.weaviateUUID(ctx, id)
	if err != nil {
		if apperrorsIsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
