package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/imagegallery/internal/config"
	"github.com/imagegallery/internal/db"
	"github.com/imagegallery/internal/service"
	"gorm.io/gorm"
)

type sampleImage struct {
	title       string
	description string
	url         string
}

// 示例图片均来自 picsum 的固定 id，保证每次生成结果一致
var sampleImages = []sampleImage{
	{"Harbor at dawn", "Fishing boats waiting for the **tide**", "https://picsum.photos/id/10/900/600"},
	{"Forest path", "Early fog between the pines", "https://picsum.photos/id/11/900/600"},
	{"Coastline", "Cliffs on a windy afternoon", "https://picsum.photos/id/12/900/600"},
	{"Lakeside", "Still water, _no_ wind", "https://picsum.photos/id/13/600/900"},
	{"Seaside road", "Somewhere along the coast", "https://picsum.photos/id/14/900/600"},
	{"Waterfall", "Long exposure, half a second", "https://picsum.photos/id/15/600/900"},
	{"Meadow", "Summer grass and a single tree", "https://picsum.photos/id/16/800/800"},
	{"Old bridge", "Stone arches over a quiet river", "https://picsum.photos/id/17/900/600"},
	{"Mountain lake", "Reflections before sunrise", "https://picsum.photos/id/18/900/600"},
	{"Pier", "Wooden planks into the mist", "https://picsum.photos/id/19/800/800"},
	{"Desk", "Notebook, coffee and `go test`", "https://picsum.photos/id/20/900/600"},
	{"Shoes", "After a long walk", "https://picsum.photos/id/21/600/900"},
	{"City lights", "View from the tenth floor", "https://picsum.photos/id/22/900/600"},
	{"Forks", "Still life in the kitchen", "https://picsum.photos/id/23/800/800"},
	{"Book", "Pages worn at the corners", "https://picsum.photos/id/24/600/900"},
}

// 测试数据生成器
func main() {
	cfg, err := config.Load("")
	if err != nil {
		log.Fatal("配置加载失败:", err)
	}
	if err := db.Init(cfg.DatabasePath); err != nil {
		log.Fatal("数据库初始化失败:", err)
	}

	fmt.Println("开始生成测试数据...")

	count, err := createTestImages(context.Background(), db.DB, time.Now())
	if err != nil {
		log.Fatal("生成图片失败:", err)
	}

	fmt.Printf("测试数据生成完成！图片: %d 张\n", count)
}

// createTestImages 清空旧图片并写入示例图片，时间戳按分钟递减
func createTestImages(ctx context.Context, gdb *gorm.DB, now time.Time) (int, error) {
	if err := gdb.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&db.Image{}).Error; err != nil {
		return 0, err
	}

	svc := service.NewGalleryService(gdb, nil, 0, nil)
	for i, sample := range sampleImages {
		item, err := svc.Create(ctx, service.GalleryInput{
			Title:       sample.title,
			Description: sample.description,
			URL:         sample.url,
		})
		if err != nil {
			return i, fmt.Errorf("%s: %w", sample.title, err)
		}

		ts := now.Add(-time.Duration(len(sampleImages)-i) * time.Minute).UnixMilli()
		if err := gdb.WithContext(ctx).Model(item).Update("ts", ts).Error; err != nil {
			return i, err
		}
	}

	fmt.Println("✅ 示例图片创建完成")
	return len(sampleImages), nil
}
