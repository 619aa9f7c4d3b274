package render_test

import (
	"testing"
	"time"

	"github.com/central-university-dev/go-forum-notify/internal/domain/models"
	"github.com/central-university-dev/go-forum-notify/internal/notifier/render"
	"github.com/stretchr/testify/assert"
)

func newItem(subject, author, text, htmlBody string) render.PostItem {
	return render.PostItem{
		Post: &models.Post{
			Subject: subject,
			Created: time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC),
		},
		Body: &models.RenderedBody{
			Text: text,
			HTML: htmlBody,
		},
		AuthorName: author,
	}
}

func TestPostText(t *testing.T) {
	t.Parallel()

	item := newItem("Вопрос по лекции", "Иван Петров", "Текст вопроса", "<p>Текст вопроса</p>")

	text := render.PostText("Алгоритмы", "Общий форум", "Лекция 3", item)

	assert.Contains(t, text, "Алгоритмы -> Общий форум -> Лекция 3")
	assert.Contains(t, text, "Вопрос по лекции")
	assert.Contains(t, text, "Иван Петров")
	assert.Contains(t, text, "Текст вопроса")
}

func TestPostHTML_EscapesNames(t *testing.T) {
	t.Parallel()

	item := newItem("A <b> B", "Автор", "текст", "<p>тело</p>")

	htmlBody := render.PostHTML("Курс <x>", "Форум", "Обсуждение", item)

	assert.Contains(t, htmlBody, "Курс &lt;x&gt;")
	assert.Contains(t, htmlBody, "A &lt;b&gt; B")
	assert.Contains(t, htmlBody, "<p>тело</p>", "уже отрисованный HTML тела не экранируется")
}

func TestDigestText_FullIncludesBodies(t *testing.T) {
	t.Parallel()

	sections := []render.DigestSection{
		{
			CourseName:     "Алгоритмы",
			ForumName:      "Общий форум",
			DiscussionName: "Лекция 3",
			Posts: []render.PostItem{
				newItem("Первый", "Иван", "Тело первого", "<p>Тело первого</p>"),
				newItem("Второй", "Мария", "Тело второго", "<p>Тело второго</p>"),
			},
		},
	}

	text := render.DigestText(sections)

	assert.Contains(t, text, "Тело первого")
	assert.Contains(t, text, "Тело второго")
	assert.Contains(t, text, "Первый")
	assert.Contains(t, text, "Второй")
}

func TestDigestText_SubjectsOnlyOmitsBodies(t *testing.T) {
	t.Parallel()

	sections := []render.DigestSection{
		{
			CourseName:     "Алгоритмы",
			ForumName:      "Общий форум",
			DiscussionName: "Лекция 3",
			SubjectsOnly:   true,
			Posts: []render.PostItem{
				newItem("Первый", "Иван", "Тело первого", "<p>Тело первого</p>"),
			},
		},
	}

	text := render.DigestText(sections)

	assert.Contains(t, text, "Первый")
	assert.Contains(t, text, "Иван")
	assert.NotContains(t, text, "Тело первого")
}

func TestDigestHTML_SubjectsOnlyRendersList(t *testing.T) {
	t.Parallel()

	sections := []render.DigestSection{
		{
			CourseName:     "Алгоритмы",
			ForumName:      "Общий форум",
			DiscussionName: "Лекция 3",
			SubjectsOnly:   true,
			Posts: []render.PostItem{
				newItem("Первый", "Иван", "Тело", "<p>Тело</p>"),
			},
		},
	}

	htmlBody := render.DigestHTML(sections)

	assert.Contains(t, htmlBody, "<ul>")
	assert.Contains(t, htmlBody, "<li>")
	assert.NotContains(t, htmlBody, "<p>Тело</p>")
}

func TestSubjects(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "ALG-101: Лекция 3", render.PostSubject("ALG-101", "Лекция 3"))
	assert.Equal(t, "Дайджест форумов за 10.03.2025",
		render.DigestSubject(time.Date(2025, 3, 10, 17, 0, 0, 0, time.UTC)))
}
