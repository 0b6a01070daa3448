package techstack

import "github.com/oakmap/codemap/pkg/models"

// tech is a known dependency mapped to a display name and category.
type tech struct {
	Name     string
	Category models.TechCategory
}

// languageNames maps scanner language tags to display names.
var languageNames = map[string]string{
	"go":         "Go",
	"rust":       "Rust",
	"python":     "Python",
	"typescript": "TypeScript",
	"tsx":        "TypeScript",
	"javascript": "JavaScript",
	"java":       "Java",
	"c":          "C",
	"cpp":        "C++",
	"csharp":     "C#",
	"ruby":       "Ruby",
	"php":        "PHP",
	"bash":       "Shell",
}

// goModules matches by module path prefix, in both go.mod require
// blocks and source import paths.
var goModules = map[string]tech{
	"github.com/gin-gonic/gin":       {"Gin", models.TechFramework},
	"github.com/labstack/echo":       {"Echo", models.TechFramework},
	"github.com/gofiber/fiber":       {"Fiber", models.TechFramework},
	"github.com/go-chi/chi":          {"chi", models.TechFramework},
	"google.golang.org/grpc":         {"gRPC", models.TechFramework},
	"github.com/spf13/cobra":         {"Cobra", models.TechTool},
	"github.com/urfave/cli":          {"urfave/cli", models.TechTool},
	"gorm.io/gorm":                   {"GORM", models.TechDatabase},
	"github.com/jackc/pgx":           {"PostgreSQL", models.TechDatabase},
	"github.com/lib/pq":              {"PostgreSQL", models.TechDatabase},
	"github.com/go-sql-driver/mysql": {"MySQL", models.TechDatabase},
	"github.com/redis/go-redis":      {"Redis", models.TechDatabase},
	"go.mongodb.org/mongo-driver":    {"MongoDB", models.TechDatabase},
	"github.com/mattn/go-sqlite3":    {"SQLite", models.TechDatabase},
	"modernc.org/sqlite":             {"SQLite", models.TechDatabase},
}

// npmPackages matches package.json dependency names exactly.
var npmPackages = map[string]tech{
	"react":             {"React", models.TechFramework},
	"react-dom":         {"React", models.TechFramework},
	"next":              {"Next.js", models.TechFramework},
	"vue":               {"Vue.js", models.TechFramework},
	"nuxt":              {"Nuxt", models.TechFramework},
	"@angular/core":     {"Angular", models.TechFramework},
	"svelte":            {"Svelte", models.TechFramework},
	"express":           {"Express", models.TechFramework},
	"fastify":           {"Fastify", models.TechFramework},
	"@nestjs/core":      {"NestJS", models.TechFramework},
	"electron":          {"Electron", models.TechFramework},
	"typescript":        {"TypeScript", models.TechLanguage},
	"jest":              {"Jest", models.TechTool},
	"vitest":            {"Vitest", models.TechTool},
	"webpack":           {"webpack", models.TechTool},
	"vite":              {"Vite", models.TechTool},
	"eslint":            {"ESLint", models.TechTool},
	"prisma":            {"Prisma", models.TechDatabase},
	"@prisma/client":    {"Prisma", models.TechDatabase},
	"mongoose":          {"MongoDB", models.TechDatabase},
	"pg":                {"PostgreSQL", models.TechDatabase},
	"mysql2":            {"MySQL", models.TechDatabase},
	"redis":             {"Redis", models.TechDatabase},
	"ioredis":           {"Redis", models.TechDatabase},
	"sqlite3":           {"SQLite", models.TechDatabase},
	"better-sqlite3":    {"SQLite", models.TechDatabase},
	"typeorm":           {"TypeORM", models.TechDatabase},
	"knex":              {"Knex", models.TechDatabase},
}

// cargoCrates matches Cargo.toml dependency names exactly.
var cargoCrates = map[string]tech{
	"actix-web":  {"Actix Web", models.TechFramework},
	"axum":       {"Axum", models.TechFramework},
	"rocket":     {"Rocket", models.TechFramework},
	"warp":       {"Warp", models.TechFramework},
	"tokio":      {"Tokio", models.TechFramework},
	"clap":       {"clap", models.TechTool},
	"diesel":     {"Diesel", models.TechDatabase},
	"sqlx":       {"SQLx", models.TechDatabase},
	"rusqlite":   {"SQLite", models.TechDatabase},
	"redis":      {"Redis", models.TechDatabase},
	"mongodb":    {"MongoDB", models.TechDatabase},
	"sea-orm":    {"SeaORM", models.TechDatabase},
}

// pythonPackages matches requirements.txt / pyproject.toml names,
// lowercased.
var pythonPackages = map[string]tech{
	"django":          {"Django", models.TechFramework},
	"flask":           {"Flask", models.TechFramework},
	"fastapi":         {"FastAPI", models.TechFramework},
	"tornado":         {"Tornado", models.TechFramework},
	"celery":          {"Celery", models.TechFramework},
	"sqlalchemy":      {"SQLAlchemy", models.TechDatabase},
	"psycopg2":        {"PostgreSQL", models.TechDatabase},
	"psycopg2-binary": {"PostgreSQL", models.TechDatabase},
	"psycopg":         {"PostgreSQL", models.TechDatabase},
	"pymongo":         {"MongoDB", models.TechDatabase},
	"redis":           {"Redis", models.TechDatabase},
	"mysqlclient":     {"MySQL", models.TechDatabase},
	"pytest":          {"pytest", models.TechTool},
	"mypy":            {"mypy", models.TechTool},
	"ruff":            {"Ruff", models.TechTool},
	"numpy":           {"NumPy", models.TechTool},
	"pandas":          {"pandas", models.TechTool},
	"torch":           {"PyTorch", models.TechFramework},
	"tensorflow":      {"TensorFlow", models.TechFramework},
}

// rubyGems matches Gemfile gem names exactly.
var rubyGems = map[string]tech{
	"rails":    {"Ruby on Rails", models.TechFramework},
	"sinatra":  {"Sinatra", models.TechFramework},
	"rspec":    {"RSpec", models.TechTool},
	"sidekiq":  {"Sidekiq", models.TechFramework},
	"pg":       {"PostgreSQL", models.TechDatabase},
	"mysql2":   {"MySQL", models.TechDatabase},
	"redis":    {"Redis", models.TechDatabase},
	"sqlite3":  {"SQLite", models.TechDatabase},
	"mongoid":  {"MongoDB", models.TechDatabase},
}

// composeImages matches docker-compose service image names by prefix.
var composeImages = map[string]tech{
	"postgres":      {"PostgreSQL", models.TechDatabase},
	"mysql":         {"MySQL", models.TechDatabase},
	"mariadb":       {"MariaDB", models.TechDatabase},
	"redis":         {"Redis", models.TechDatabase},
	"mongo":         {"MongoDB", models.TechDatabase},
	"elasticsearch": {"Elasticsearch", models.TechDatabase},
	"rabbitmq":      {"RabbitMQ", models.TechTool},
	"kafka":         {"Kafka", models.TechTool},
	"nginx":         {"nginx", models.TechDeployment},
	"traefik":       {"Traefik", models.TechDeployment},
}
