package deepseek

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/igame-lab/assistant/classifier"
)

func fakeCompletions(status int, content string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if status != http.StatusOK {
			http.Error(w, "upstream unavailable", status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":` + strconv.Quote(content) + `}}]}`))
	}))
}

func newTestClassifier(url string) classifier.Classifier {
	return NewClassifier(
		classifier.WithApiKey("test-key"),
		classifier.WithLocation(url),
		classifier.WithModel("deepseek-chat"),
	)
}

func TestClassifyParsesIntentReply(t *testing.T) {
	srv := fakeCompletions(http.StatusOK, `{"intent": "lab_related"}`)
	defer srv.Close()

	result := newTestClassifier(srv.URL).Classify(context.Background(), "实验室有多少人")

	if result.Intent != classifier.IntentLabRelated {
		t.Fatalf("intent = %s, want %s", result.Intent, classifier.IntentLabRelated)
	}
	if result.Confidence != 0.8 {
		t.Fatalf("confidence = %v, want the 0.8 default", result.Confidence)
	}
}

func TestClassifyKeepsReportedConfidence(t *testing.T) {
	srv := fakeCompletions(http.StatusOK, `{"intent": "general", "confidence": 0.95}`)
	defer srv.Close()

	result := newTestClassifier(srv.URL).Classify(context.Background(), "今晚吃什么")

	if result.Intent != classifier.IntentGeneral {
		t.Fatalf("intent = %s, want %s", result.Intent, classifier.IntentGeneral)
	}
	if result.Confidence != 0.95 {
		t.Fatalf("confidence = %v, want 0.95", result.Confidence)
	}
}

func TestClassifyFallsBackOnUpstreamFailure(t *testing.T) {
	srv := fakeCompletions(http.StatusInternalServerError, "")
	defer srv.Close()

	message := "现在几点了"
	result := newTestClassifier(srv.URL).Classify(context.Background(), message)

	if want := classifier.Keyword(message); result != want {
		t.Fatalf("result = %+v, want the keyword fallback %+v", result, want)
	}
}

func TestClassifyFallsBackOnUnparsableReply(t *testing.T) {
	srv := fakeCompletions(http.StatusOK, "我不太确定这个问题的意图。")
	defer srv.Close()

	message := "徐岗教授的研究方向是什么"
	result := newTestClassifier(srv.URL).Classify(context.Background(), message)

	if want := classifier.Keyword(message); result != want {
		t.Fatalf("result = %+v, want the keyword fallback %+v", result, want)
	}
}

func TestClassifyFallsBackOnUnknownIntent(t *testing.T) {
	srv := fakeCompletions(http.StatusOK, `{"intent": "weather_query"}`)
	defer srv.Close()

	message := "去年圣诞节发生了什么"
	result := newTestClassifier(srv.URL).Classify(context.Background(), message)

	if want := classifier.Keyword(message); result != want {
		t.Fatalf("result = %+v, want the keyword fallback %+v", result, want)
	}
}

func TestClassifyFallsBackWhenUnreachable(t *testing.T) {
	srv := fakeCompletions(http.StatusOK, "")
	srv.Close()

	message := "实验室最近有什么新闻"
	result := newTestClassifier(srv.URL).Classify(context.Background(), message)

	if want := classifier.Keyword(message); result != want {
		t.Fatalf("result = %+v, want the keyword fallback %+v", result, want)
	}
}
