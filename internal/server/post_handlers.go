package server

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"

	"farmlink/internal/middleware"
	"farmlink/internal/models"
	"farmlink/internal/pdf"
	"farmlink/internal/service"

	"github.com/gofiber/fiber/v2"
)

type createPostRequest struct {
	Content    string                   `json:"content"`
	Visibility string                   `json:"visibility"`
	Tags       string                   `json:"tags"`
	Poll       *service.CreatePollInput `json:"poll,omitempty"`
}

type updatePostRequest struct {
	Content    *string `json:"content"`
	Visibility *string `json:"visibility"`
	Tags       *string `json:"tags"`
}

// CreatePost handles POST /api/posts
// @Summary Create a post
// @Description Accepts JSON, or multipart with an "image" file and a "poll" JSON field
// @Tags posts
// @Accept json,mpfd
// @Produce json
// @Security BearerAuth
// @Param request body createPostRequest true "Post"
// @Success 201 {object} models.Post
// @Failure 400 {object} models.ErrorResponse
// @Router /posts [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	accountID, _ := middleware.CurrentAccountID(c)

	in, err := s.parseCreatePost(c)
	if err != nil {
		return respondError(c, err)
	}
	in.AuthorID = accountID

	post, err := s.postService.CreatePost(c.UserContext(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

func (s *Server) parseCreatePost(c *fiber.Ctx) (service.CreatePostInput, error) {
	if !strings.HasPrefix(string(c.Request().Header.ContentType()), fiber.MIMEMultipartForm) {
		var req createPostRequest
		if err := c.BodyParser(&req); err != nil {
			return service.CreatePostInput{}, models.NewValidationError("Invalid request body")
		}
		return service.CreatePostInput{
			Content:    req.Content,
			Visibility: req.Visibility,
			Tags:       req.Tags,
			Poll:       req.Poll,
		}, nil
	}

	form, err := c.MultipartForm()
	if err != nil {
		return service.CreatePostInput{}, models.NewValidationError("Invalid multipart body")
	}
	value := func(key string) string {
		if v := form.Value[key]; len(v) > 0 {
			return v[0]
		}
		return ""
	}

	in := service.CreatePostInput{
		Content:    value("content"),
		Visibility: value("visibility"),
		Tags:       value("tags"),
	}
	if raw := strings.TrimSpace(value("poll")); raw != "" {
		var poll service.CreatePollInput
		if err := json.Unmarshal([]byte(raw), &poll); err != nil {
			return in, models.NewFieldValidationError(map[string]string{"poll": "must be a JSON object"})
		}
		in.Poll = &poll
	}

	files := form.File["image"]
	if len(files) == 0 {
		return in, nil
	}
	file := files[0]
	maxBytes := int64(s.config.ImageMaxUploadSizeMB) << 20
	if maxBytes > 0 && file.Size > maxBytes {
		return in, models.NewFieldValidationError(map[string]string{"image": "file is too large"})
	}
	f, err := file.Open()
	if err != nil {
		return in, models.NewInternalError(err)
	}
	defer func() { _ = f.Close() }()
	data, err := io.ReadAll(f)
	if err != nil {
		return in, models.NewInternalError(err)
	}
	in.Image = data
	return in, nil
}

// GetPosts handles GET /api/posts
// @Summary List posts
// @Description Public posts plus the viewer's own followers-only posts, newest first
// @Tags posts
// @Produce json
// @Param tag query string false "Tag filter"
// @Param author_id query int false "Author filter"
// @Param limit query int false "Page size (max 100)"
// @Param offset query int false "Offset"
// @Success 200 {array} models.Post
// @Router /posts [get]
func (s *Server) GetPosts(c *fiber.Ctx) error {
	page := parsePagination(c, service.DefaultPageSize)
	authorID := c.QueryInt("author_id", 0)
	if authorID < 0 {
		authorID = 0
	}

	posts, err := s.postService.ListPosts(c.UserContext(), service.ListPostsInput{
		ViewerID: viewerID(c),
		AuthorID: uint(authorID),
		Tag:      c.Query("tag"),
		Limit:    page.Limit,
		Offset:   page.Offset,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(posts)
}

// GetPost handles GET /api/posts/:id
// @Summary Get a post
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} models.Post
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id} [get]
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	post, err := s.postService.GetPost(c.UserContext(), id, viewerID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(post)
}

// UpdatePost handles PUT and PATCH /api/posts/:id
// @Summary Update a post
// @Description Author or administrator only
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Param request body updatePostRequest true "Changed fields"
// @Success 200 {object} models.Post
// @Failure 403 {object} models.ErrorResponse
// @Router /posts/{id} [put]
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	accountID, _ := middleware.CurrentAccountID(c)
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req updatePostRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, models.NewValidationError("Invalid request body"))
	}

	post, err := s.postService.UpdatePost(c.UserContext(), service.UpdatePostInput{
		AccountID:  accountID,
		PostID:     postID,
		Content:    req.Content,
		Visibility: req.Visibility,
		Tags:       req.Tags,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(post)
}

// DeletePost handles DELETE /api/posts/:id
// @Summary Delete a post
// @Description Author or administrator only; removes comments, likes, saves and the poll
// @Tags posts
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 204
// @Failure 403 {object} models.ErrorResponse
// @Router /posts/{id} [delete]
func (s *Server) DeletePost(c *fiber.Ctx) error {
	accountID, _ := middleware.CurrentAccountID(c)
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.postService.DeletePost(c.UserContext(), accountID, postID); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// LikePost handles POST /api/posts/:id/like
// @Summary Toggle like
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 200 {object} models.ToggleResult
// @Router /posts/{id}/like [post]
func (s *Server) LikePost(c *fiber.Ctx) error {
	accountID, _ := middleware.CurrentAccountID(c)
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	res, err := s.postService.ToggleLike(c.UserContext(), accountID, postID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"post_id": res.PostID, "liked": res.Active, "likes_count": res.Count})
}

// SavePost handles POST /api/posts/:id/save
// @Summary Toggle save
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 200 {object} models.ToggleResult
// @Router /posts/{id}/save [post]
func (s *Server) SavePost(c *fiber.Ctx) error {
	accountID, _ := middleware.CurrentAccountID(c)
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	res, err := s.postService.ToggleSave(c.UserContext(), accountID, postID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"post_id": res.PostID, "saved": res.Active, "likes_count": res.Count})
}

// GetSavedPosts handles GET /api/posts/saved
// @Summary List saved posts
// @Description Newest post first
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Post
// @Router /posts/saved [get]
func (s *Server) GetSavedPosts(c *fiber.Ctx) error {
	accountID, _ := middleware.CurrentAccountID(c)
	posts, err := s.postService.ListSavedPosts(c.UserContext(), accountID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(posts)
}

// ExportPostPDF handles GET /api/posts/:id/pdf
// @Summary Export a post as PDF
// @Tags posts
// @Produce application/pdf
// @Param id path int true "Post ID"
// @Success 200 {file} file
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id}/pdf [get]
func (s *Server) ExportPostPDF(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var buf bytes.Buffer
	if err := s.postService.ExportPDF(c.UserContext(), postID, viewerID(c), &buf); err != nil {
		return respondError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, attachment(pdf.Filename(postID)))
	return c.Send(buf.Bytes())
}
