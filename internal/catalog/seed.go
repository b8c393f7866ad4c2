package catalog

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// SeedFile 是物品目录种子文件的结构
//
//	items:
//	  - id: 101
//	    name: Ice Sword
//	    category: weapon
type SeedFile struct {
	Items []Item `yaml:"items"`
}

// LoadSeed 读取并校验YAML种子文件
func LoadSeed(path string) ([]Item, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取种子文件失败: %w", err)
	}
	return parseSeed(data)
}

func parseSeed(data []byte) ([]Item, error) {
	var seed SeedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("解析种子文件失败: %w", err)
	}

	seen := make(map[string]bool, len(seed.Items))
	for i, item := range seed.Items {
		if strings.TrimSpace(item.Name) == "" {
			return nil, fmt.Errorf("第 %d 个物品缺少名称", i+1)
		}
		if seen[item.Name] {
			return nil, fmt.Errorf("物品名称重复: %s", item.Name)
		}
		seen[item.Name] = true
		if item.Category == "" {
			seed.Items[i].Category = "weapon"
		}
	}
	return seed.Items, nil
}
