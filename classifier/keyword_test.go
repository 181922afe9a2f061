package classifier

import "testing"

func TestKeywordTimeQuery(t *testing.T) {
	res := Keyword("现在几点了")
	if res.Intent != IntentTimeQuery {
		t.Fatalf("unexpected intent: got %s want %s", res.Intent, IntentTimeQuery)
	}
	if res.Confidence != 0.8 {
		t.Fatalf("unexpected confidence: got %v", res.Confidence)
	}
}

func TestKeywordHistoricalBeatsTime(t *testing.T) {
	res := Keyword("去年圣诞节是什么时候")
	if res.Intent != IntentHistoricalTimeQuery {
		t.Fatalf("unexpected intent: got %s", res.Intent)
	}
}

func TestKeywordLabRelated(t *testing.T) {
	for _, msg := range []string{
		"实验室有多少人",
		"徐岗教授是谁",
		"Tell me about iGame",
	} {
		if res := Keyword(msg); res.Intent != IntentLabRelated {
			t.Fatalf("message %q: got %s want %s", msg, res.Intent, IntentLabRelated)
		}
	}
}

func TestKeywordGeneralDefault(t *testing.T) {
	res := Keyword("hello there")
	if res.Intent != IntentGeneral {
		t.Fatalf("unexpected intent: got %s", res.Intent)
	}
}

func TestKeywordDeterministic(t *testing.T) {
	first := Keyword("现在几点了")
	for i := 0; i < 10; i++ {
		if got := Keyword("现在几点了"); got != first {
			t.Fatalf("keyword classification drifted: got %+v want %+v", got, first)
		}
	}
}
