package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/SlpAus/battle-effects-backend/internal/aggregate"
	"github.com/SlpAus/battle-effects-backend/internal/catalog"
	"github.com/SlpAus/battle-effects-backend/internal/effects"
	"github.com/SlpAus/battle-effects-backend/internal/export"
	"github.com/SlpAus/battle-effects-backend/internal/platform/config"
	"github.com/SlpAus/battle-effects-backend/internal/platform/database"
	"github.com/SlpAus/battle-effects-backend/internal/platform/logging"
	"github.com/SlpAus/battle-effects-backend/internal/platform/startup"
	"github.com/SlpAus/battle-effects-backend/internal/submission"
	"github.com/SlpAus/battle-effects-backend/pkg/token"
)

var version = "dev"

var (
	verbose bool
	cfg     *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "effectsctl",
	Short:   "武器效果数据的运维工具",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.LoadConfig()
		if err != nil {
			return fmt.Errorf("无法加载配置: %w", err)
		}
		if verbose {
			cfg.Log.Level = "debug"
		}
		cfg.Log.Pretty = true
		logging.Init(cfg.Log)
		return nil
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "输出调试日志")

	exportCmd.Flags().StringVarP(&exportPath, "output", "o", "", "导出的XLSX文件路径（默认 item_<id>.xlsx）")
	issueTokenCmd.Flags().StringVar(&tokenRole, "role", token.RoleCurator, "令牌角色: curator 或 admin")
	issueTokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "令牌有效期，0 表示永不过期")

	rootCmd.AddCommand(seedCatalogCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(aggregateCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(issueTokenCmd)
}

// openDB 连接数据库并迁移表结构。命令行工具不使用Redis。
func openDB() (*gorm.DB, error) {
	db, err := database.Open(cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := startup.InitializeSchema(db); err != nil {
		return nil, err
	}
	return db, nil
}

func parseItemID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("物品ID无效: %s", raw)
	}
	return uint(id), nil
}

func newService(db *gorm.DB) *effects.Service {
	return effects.NewService(db, effects.NewStore(db), submission.NewRepository(db), catalog.NewRepository(db), aggregate.New(nil), nil)
}

// --- seed-catalog ---

var seedCatalogCmd = &cobra.Command{
	Use:   "seed-catalog <file.yaml>",
	Short: "从YAML文件导入物品目录",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		items, err := catalog.LoadSeed(args[0])
		if err != nil {
			return err
		}
		db, err := openDB()
		if err != nil {
			return err
		}
		if err := catalog.NewRepository(db).Upsert(cmd.Context(), items); err != nil {
			return err
		}
		log.Info().Int("items", len(items)).Msg("物品目录导入完成")
		return nil
	},
}

// --- ingest ---

var ingestCmd = &cobra.Command{
	Use:   "ingest <reports.json>",
	Short: "从JSON文件批量导入战报",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		body, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("无法读取文件: %w", err)
		}
		db, err := openDB()
		if err != nil {
			return err
		}
		ingestor := submission.NewIngestor(submission.NewRepository(db), catalog.NewRepository(db))
		result, err := ingestor.IngestBatch(cmd.Context(), body)
		if err != nil {
			return err
		}
		fmt.Printf("Stored: %d\nDuplicates: %d\n", result.Stored, result.Duplicates)
		return nil
	},
}

// --- aggregate ---

var aggregateCmd = &cobra.Command{
	Use:   "aggregate <item-id>",
	Short: "输出物品未处理战报的参考统计（JSON）",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		itemID, err := parseItemID(args[0])
		if err != nil {
			return err
		}
		db, err := openDB()
		if err != nil {
			return err
		}
		result, err := newService(db).Advisory(cmd.Context(), itemID)
		if err != nil {
			return err
		}
		out, err := sonic.ConfigStd.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		if result.Empty() {
			log.Warn().Uint("item_id", itemID).Msg("没有合格的攻击记录，数据不足")
		}
		return nil
	},
}

// --- export ---

var exportPath string

var exportCmd = &cobra.Command{
	Use:   "export <item-id>",
	Short: "把已审核视图和参考统计导出为XLSX",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		itemID, err := parseItemID(args[0])
		if err != nil {
			return err
		}
		db, err := openDB()
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		item, err := catalog.NewRepository(db).GetByID(ctx, itemID)
		if err != nil {
			return err
		}
		service := newService(db)
		current, err := service.GetCuratedView(ctx, itemID)
		if err != nil {
			return err
		}
		advisory, err := service.Advisory(ctx, itemID)
		if err != nil {
			return err
		}

		path := exportPath
		if path == "" {
			path = fmt.Sprintf("item_%d.xlsx", itemID)
		}
		err = export.WriteXLSX(path, export.Sheet{
			ItemID:   item.ID,
			ItemName: item.Name,
			State:    current.State,
			View:     current.View,
			Advisory: advisory,
		})
		if err != nil {
			return fmt.Errorf("导出失败: %w", err)
		}
		fmt.Printf("Exported: %s\n", path)
		return nil
	},
}

// --- issue-token ---

var (
	tokenRole string
	tokenTTL  time.Duration
)

var issueTokenCmd = &cobra.Command{
	Use:   "issue-token <subject>",
	Short: "签发馆长身份令牌（供开发和运维使用）",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if tokenRole != token.RoleCurator && tokenRole != token.RoleAdmin {
			return fmt.Errorf("不支持的角色: %s", tokenRole)
		}
		signer, err := token.NewSigner(cfg.Auth.Secret)
		if err != nil {
			return err
		}
		claims := token.Claims{Subject: args[0], Role: tokenRole}
		if tokenTTL > 0 {
			claims.ExpiresAt = time.Now().Add(tokenTTL).Unix()
		}
		tok, err := signer.Issue(claims)
		if err != nil {
			return err
		}
		fmt.Println(tok)
		return nil
	},
}
