package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/tokenmeter/tokenmeter-api/internal/errors"
	"github.com/tokenmeter/tokenmeter-api/internal/model"
	"github.com/tokenmeter/tokenmeter-api/internal/service"
)

const (
	freePlanID = "1c0d9e8f-7a6b-4c5d-8e4f-3a2b1c0d9e8f"
	proPlanID  = "2d1e0f9a-8b7c-4d6e-9f5a-4b3c2d1e0f9a"
)

var (
	freePlan = model.SubscriptionPlan{ID: freePlanID, Name: "Free", Slug: "free"}
	proPlan  = model.SubscriptionPlan{ID: proPlanID, Name: "Pro", Slug: "pro", PriceMonthly: 29}
)

func TestBillingHandler_Current(t *testing.T) {
	t.Run("no subscription", func(t *testing.T) {
		billing := &mockBillingService{}
		billing.On("Current", mock.Anything, testUserID).Return(&service.BillingOverview{
			Plans: []model.SubscriptionPlan{freePlan, proPlan},
		}, nil)

		rec := serve(t, NewBillingHandler(billing).Routes(), http.MethodGet, "/current", "", true)

		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.Nil(t, body["currentSubscription"])
		assert.Len(t, body["availablePlans"], 2)
		assert.NotContains(t, body, "success")
	})

	t.Run("active subscription", func(t *testing.T) {
		start := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
		billing := &mockBillingService{}
		billing.On("Current", mock.Anything, testUserID).Return(&service.BillingOverview{
			Subscription: &model.Subscription{
				ID:                 "sub-1",
				PlanID:             proPlan.ID,
				Status:             model.SubscriptionStatusActive,
				CurrentPeriodStart: start,
				CurrentPeriodEnd:   start.AddDate(0, 1, 0),
			},
			Plan:  &proPlan,
			Plans: []model.SubscriptionPlan{freePlan, proPlan},
		}, nil)

		rec := serve(t, NewBillingHandler(billing).Routes(), http.MethodGet, "/current", "", true)

		require.Equal(t, http.StatusOK, rec.Code)
		current := decodeBody(t, rec)["currentSubscription"].(map[string]any)
		assert.Equal(t, "active", current["status"])
		assert.Equal(t, "2026-11-01T00:00:00Z", current["currentPeriodEnd"])
		assert.Equal(t, "pro", current["plan"].(map[string]any)["slug"])
	})
}

func TestBillingHandler_ChangePlan(t *testing.T) {
	t.Run("plan id required", func(t *testing.T) {
		billing := &mockBillingService{}

		rec := serve(t, NewBillingHandler(billing).Routes(), http.MethodPost, "/change-plan", `{}`, true)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Plan ID is required", decodeBody(t, rec)["message"])
	})

	for outcome, message := range map[service.PlanChangeOutcome]string{
		service.PlanChangeCreated: "Successfully subscribed to Pro plan",
		service.PlanChangeUpdated: "Successfully changed to Pro plan",
	} {
		t.Run(outcome.String(), func(t *testing.T) {
			billing := &mockBillingService{}
			billing.On("ChangePlan", mock.Anything, testUserID, proPlan.ID).
				Return(&service.PlanChange{Outcome: outcome, Plan: &proPlan}, nil)

			rec := serve(t, NewBillingHandler(billing).Routes(), http.MethodPost, "/change-plan", `{"planId":"`+proPlanID+`"}`, true)

			require.Equal(t, http.StatusOK, rec.Code)
			body := decodeBody(t, rec)
			assert.Equal(t, message, body["message"])
			assert.Equal(t, "Pro", body["plan"].(map[string]any)["name"])
		})
	}

	t.Run("malformed plan id", func(t *testing.T) {
		billing := &mockBillingService{}

		rec := serve(t, NewBillingHandler(billing).Routes(), http.MethodPost, "/change-plan", `{"planId":"pro"}`, true)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Invalid plan", decodeBody(t, rec)["message"])
		billing.AssertNotCalled(t, "ChangePlan", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("same plan", func(t *testing.T) {
		billing := &mockBillingService{}
		billing.On("ChangePlan", mock.Anything, testUserID, proPlan.ID).
			Return(nil, apperrors.ValidationError("Already on this plan"))

		rec := serve(t, NewBillingHandler(billing).Routes(), http.MethodPost, "/change-plan", `{"planId":"`+proPlanID+`"}`, true)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Already on this plan", decodeBody(t, rec)["message"])
	})
}
