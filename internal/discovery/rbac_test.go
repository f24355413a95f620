package discovery

import (
	"context"
	"errors"
	"testing"

	authorizationv1 "k8s.io/api/authorization/v1"
	"k8s.io/apimachinery/pkg/runtime"
	fakeclientset "k8s.io/client-go/kubernetes/fake"
	clienttesting "k8s.io/client-go/testing"
)

// addSelfSubjectAccessReviewReactor installs a reactor on the fake client
// that returns the given allowed value for all SelfSubjectAccessReview requests.
func addSelfSubjectAccessReviewReactor(client *fakeclientset.Clientset, allowed bool) {
	client.PrependReactor("create", "selfsubjectaccessreviews", func(action clienttesting.Action) (bool, runtime.Object, error) {
		return true, &authorizationv1.SelfSubjectAccessReview{
			Status: authorizationv1.SubjectAccessReviewStatus{
				Allowed: allowed,
			},
		}, nil
	})
}

func TestCanListServices_Allowed(t *testing.T) {
	client := fakeclientset.NewSimpleClientset()
	addSelfSubjectAccessReviewReactor(client, true)

	ok, err := CanListServices(context.Background(), client, "ray")
	if err != nil {
		t.Fatalf("CanListServices() error = %v", err)
	}
	if !ok {
		t.Error("expected CanListServices=true when list is allowed")
	}
}

func TestCanListServices_Denied(t *testing.T) {
	client := fakeclientset.NewSimpleClientset()
	addSelfSubjectAccessReviewReactor(client, false)

	ok, err := CanListServices(context.Background(), client, "ray")
	if err != nil {
		t.Fatalf("CanListServices() error = %v", err)
	}
	if ok {
		t.Error("expected CanListServices=false when access is denied")
	}
}

func TestCanListServices_ReviewAttributes(t *testing.T) {
	client := fakeclientset.NewSimpleClientset()
	var got *authorizationv1.ResourceAttributes
	client.PrependReactor("create", "selfsubjectaccessreviews", func(action clienttesting.Action) (bool, runtime.Object, error) {
		review := action.(clienttesting.CreateAction).GetObject().(*authorizationv1.SelfSubjectAccessReview)
		got = review.Spec.ResourceAttributes
		return true, &authorizationv1.SelfSubjectAccessReview{}, nil
	})

	if _, err := CanListServices(context.Background(), client, "ray"); err != nil {
		t.Fatalf("CanListServices() error = %v", err)
	}
	if got == nil {
		t.Fatal("expected a SelfSubjectAccessReview to be created")
	}
	if got.Namespace != "ray" || got.Resource != "services" || got.Verb != "list" || got.Group != "" {
		t.Errorf("unexpected resource attributes: %+v", got)
	}
}

func TestCanListServices_ReviewError(t *testing.T) {
	client := fakeclientset.NewSimpleClientset()
	client.PrependReactor("create", "selfsubjectaccessreviews", func(action clienttesting.Action) (bool, runtime.Object, error) {
		return true, nil, errors.New("apiserver unavailable")
	})

	if _, err := CanListServices(context.Background(), client, "ray"); err == nil {
		t.Fatal("expected an error when the review cannot be created")
	}
}
